package rules

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/fwdetect/internal/detector"
	"github.com/example/fwdetect/internal/env"
)

func defaultDetector(t *testing.T) (*detector.Detector, *logtest.Hook) {
	t.Helper()
	compiled, err := Build(BuildOptions{})
	require.NoError(t, err)
	logger, hook := logtest.NewNullLogger()
	return detector.New(compiled, detector.WithLogger(logger)), hook
}

func page(t *testing.T, markup string, globals map[string]any, props map[string][]string) *env.Page {
	t.Helper()
	snap := env.Snapshot{HTML: markup, Globals: globals, ElementProperties: props}
	p, err := snap.Page(context.Background(), env.PageOptions{})
	require.NoError(t, err)
	return p
}

func TestScenarioJQueryOnly(t *testing.T) {
	d, _ := defaultDetector(t)
	p := page(t, `<html><body></body></html>`, map[string]any{
		"jQuery": map[string]any{"fn": map[string]any{"jquery": "3.6.0"}},
	}, nil)

	assert.Equal(t, map[string]string{"jQuery.js": "3.6.0"}, d.Run(p).Map())
}

func TestScenarioVueVersionHidden(t *testing.T) {
	d, _ := defaultDetector(t)
	p := page(t, `<html></html>`, map[string]any{"Vue": map[string]any{}}, nil)

	assert.Equal(t, map[string]string{"Vue.js": detector.StatusVersionHidden}, d.Run(p).Map())
}

func TestScenarioEmberAndAngularJS(t *testing.T) {
	d, _ := defaultDetector(t)
	p := page(t, `<html><body><div ng-app="shop"></div></body></html>`, map[string]any{"Ember": map[string]any{}}, nil)

	assert.Equal(t, map[string]string{
		"Ember.js":  detector.StatusPresent,
		"AngularJS": detector.StatusVersionHidden,
	}, d.Run(p).Map())
}

func TestScenarioEmberAndAngularJSWithoutExtractor(t *testing.T) {
	defs, err := Default()
	require.NoError(t, err)
	// AngularJS reports plain presence only when its entry has no version source.
	for i := range defs {
		if defs[i].Name == "AngularJS" {
			defs[i].Version = ""
		}
	}
	compiled, err := Compile(defs)
	require.NoError(t, err)

	logger, _ := logtest.NewNullLogger()
	report := detector.New(compiled, detector.WithLogger(logger)).Run(&env.Static{
		Globals:   map[string]any{"Ember": map[string]any{}},
		Selectors: map[string]bool{"[ng-controller]": true},
	})

	assert.Equal(t, map[string]string{"Ember.js": "present", "AngularJS": "present"}, report.Map())
}

func TestScenarioNothingFound(t *testing.T) {
	d, hook := defaultDetector(t)
	p := page(t, `<html><head><title>plain</title></head><body><p>hi</p></body></html>`, nil, nil)

	report := d.Run(p)
	assert.Equal(t, 0, report.Len())
	assert.Equal(t, "{}", report.String())
	assert.Equal(t, detector.NothingFoundMarker, hook.LastEntry().Message)
}

func TestDefaultRulesAgainstMarkup(t *testing.T) {
	tests := []struct {
		name    string
		markup  string
		globals map[string]any
		props   map[string][]string
		want    map[string]string
	}{
		{
			name:   "next and react root",
			markup: `<div id="__next" data-reactroot=""></div><script id="__NEXT_DATA__" type="application/json">{}</script>`,
			want:   map[string]string{"React.js": detector.StatusVersionHidden, "Next.js": "present"},
		},
		{
			name:    "react version from global",
			markup:  `<div id="root"></div>`,
			globals: map[string]any{"React": map[string]any{"version": "18.2.0"}},
			want:    map[string]string{"React.js": "18.2.0"},
		},
		{
			name:   "react container property prefix",
			markup: `<div id="root"></div>`,
			props:  map[string][]string{"#root": {"__reactContainer$x1y2"}},
			want:   map[string]string{"React.js": detector.StatusVersionHidden},
		},
		{
			name:   "react root container property",
			markup: `<div id="root"></div>`,
			props:  map[string][]string{"#root": {"_reactRootContainer"}},
			want:   map[string]string{"React.js": detector.StatusVersionHidden},
		},
		{
			name:   "gatsby",
			markup: `<div id="___gatsby"></div>`,
			want:   map[string]string{"Gatsby.js": "present"},
		},
		{
			name:    "angularjs script and version",
			markup:  `<script src="/lib/angular.min.js"></script>`,
			globals: map[string]any{"angular": map[string]any{"version": map[string]any{"full": "1.8.2"}}},
			want:    map[string]string{"AngularJS": "1.8.2"},
		},
		{
			name:    "angular ng zone",
			markup:  `<app-root></app-root>`,
			globals: map[string]any{"ng": map[string]any{"coreTokens": map[string]any{"NgZone": map[string]any{}}}},
			want:    map[string]string{"Angular": "present"},
		},
		{
			name:   "sveltekit",
			markup: `<sveltekit-app></sveltekit-app><p data-svelte-h="svelte-1x"></p>`,
			want:   map[string]string{"Svelte.js / SvelteKit": "present"},
		},
		{
			name:    "legacy globals",
			markup:  `<p></p>`,
			globals: map[string]any{"Backbone": map[string]any{}, "Meteor": map[string]any{}, "Zepto": true, "can": map[string]any{}},
			want:    map[string]string{"Backbone.js": "present", "Meteor.js": "present", "Zepto.js": "present", "can.js": "present"},
		},
		{
			name:   "fq root",
			markup: `<div id="fq-root"></div><script src="https://cdn.test/fq.js"></script>`,
			want:   map[string]string{"fq.js": "present"},
		},
		{
			name:    "falsy global does not match",
			markup:  `<p></p>`,
			globals: map[string]any{"Vue": false, "jQuery": ""},
			want:    map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := defaultDetector(t)
			assert.Equal(t, tt.want, d.Run(page(t, tt.markup, tt.globals, tt.props)).Map())
		})
	}
}

func TestInlineScriptGlobals(t *testing.T) {
	snap := env.Snapshot{HTML: `<html><head>
		<script>window.jQuery = function () {}; jQuery.fn = { jquery: "1.12.4" };</script>
	</head></html>`}
	p, err := snap.Page(context.Background(), env.PageOptions{ExecScripts: true})
	require.NoError(t, err)

	d, _ := defaultDetector(t)
	assert.Equal(t, map[string]string{"jQuery.js": "1.12.4"}, d.Run(p).Map())
}

func TestFailingProbeOmitsRule(t *testing.T) {
	d, hook := defaultDetector(t)
	report, failures := d.RunDetailed(&env.Static{
		Globals: map[string]any{"Ember": map[string]any{}},
		Errors:  map[string]error{"Vue": errors.New("getter threw")},
	})

	assert.Equal(t, map[string]string{"Ember.js": "present"}, report.Map())
	require.Len(t, failures, 1)
	assert.Equal(t, "Vue.js", failures[0].Rule)

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && strings.Contains(entry.Message, "Vue.js") {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestPropertyScanStopsOnFirstMatch(t *testing.T) {
	compiled, err := Compile([]Definition{{Name: "x", PropertyPrefixes: []string{"__x"}}})
	require.NoError(t, err)

	visited := 0
	s := &countingEnv{Static: env.Static{Elements: [][]string{{"a"}, {"__x1"}, {"__x2"}}}, visited: &visited}
	ok, err := compiled[0].Detect(s)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, visited)
}

type countingEnv struct {
	env.Static
	visited *int
}

func (c *countingEnv) EachElement(fn func(props []string) bool) error {
	return c.Static.EachElement(func(props []string) bool {
		*c.visited++
		return fn(props)
	})
}

func TestScriptSelector(t *testing.T) {
	assert.Equal(t, `script[src*="fq.js"]`, ScriptSelector("fq.js"))
}
