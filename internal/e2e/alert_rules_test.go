package e2e

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	jobmetrics "github.com/propdesk/propdesk/internal/jobs"
	"github.com/propdesk/propdesk/internal/observability"
)

type ruleFile struct {
	Groups []struct {
		Name  string `yaml:"name"`
		Rules []struct {
			Alert string `yaml:"alert"`
			Expr  string `yaml:"expr"`
			For   string `yaml:"for"`
		} `yaml:"rules"`
	} `yaml:"groups"`
}

var metricName = regexp.MustCompile(`propdesk_[a-z_]+`)

func repoRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..")
}

// exportedMetrics exercises every collector once so that vector metrics show
// up in Gather, then returns the family names.
func exportedMetrics(t *testing.T) map[string]bool {
	t.Helper()
	app := observability.NewMetrics()
	app.ObserveAPICall("GET", "auth", 10*time.Millisecond)
	app.ObservePDFRender("invoice", errors.New("boom"), time.Second)
	app.PDFSlotAcquired(1)

	reg := prometheus.NewRegistry()
	jm := jobmetrics.NewMetrics(reg)
	_ = jm.Track("pdf:render").End(errors.New("gotenberg down"))

	names := map[string]bool{}
	for _, g := range []prometheus.Gatherer{app.Gatherer(), reg} {
		families, err := g.Gather()
		require.NoError(t, err)
		for _, fam := range families {
			names[fam.GetName()] = true
		}
	}
	return names
}

func TestAlertRulesReferenceExportedMetrics(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join(repoRoot(t), "deploy", "prometheus", "alerts", "propdesk.yml"))
	require.NoError(t, err)
	var rules ruleFile
	require.NoError(t, yaml.Unmarshal(raw, &rules))
	require.NotEmpty(t, rules.Groups)

	exported := exportedMetrics(t)
	seen := map[string]bool{}
	for _, group := range rules.Groups {
		for _, rule := range group.Rules {
			require.False(t, seen[rule.Alert], "duplicate alert %s", rule.Alert)
			seen[rule.Alert] = true
			_, err := time.ParseDuration(rule.For)
			require.NoError(t, err, rule.Alert)

			refs := metricName.FindAllString(rule.Expr, -1)
			require.NotEmpty(t, refs, rule.Alert)
			for _, ref := range refs {
				require.True(t, exported[ref], "%s references unknown metric %s", rule.Alert, ref)
			}
		}
	}
}
