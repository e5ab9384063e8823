package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilp0inter/monana/pkg/action"
	"github.com/nilp0inter/monana/pkg/attr"
	"github.com/nilp0inter/monana/pkg/cond"
	"github.com/nilp0inter/monana/pkg/geocode"
	"github.com/nilp0inter/monana/pkg/mediactx"
	"github.com/nilp0inter/monana/pkg/pipeline"
	"github.com/nilp0inter/monana/pkg/probe/probetest"
	"github.com/nilp0inter/monana/pkg/rule"
	"github.com/nilp0inter/monana/pkg/source"
	"github.com/nilp0inter/monana/pkg/template"
)

var captured = time.Date(2025, 7, 18, 21, 30, 5, 0, time.UTC)

type recorder struct {
	outcomes []pipeline.Outcome
	mu       sync.Mutex
}

func (r *recorder) Record(_ context.Context, o pipeline.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.outcomes = append(r.outcomes, o)
}

func (r *recorder) get() []pipeline.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]pipeline.Outcome(nil), r.outcomes...)
}

func (r *recorder) byRuleset(name string) []pipeline.Outcome {
	var out []pipeline.Outcome

	for _, o := range r.get() {
		if o.Ruleset == name {
			out = append(out, o)
		}
	}

	return out
}

func mustInput(t *testing.T, s string) pipeline.Input {
	t.Helper()

	in, err := pipeline.ParseInput(s)
	require.NoError(t, err)

	return in
}

func mustRuleset(t *testing.T, name, input string, rules ...*rule.Rule) *pipeline.Ruleset {
	t.Helper()

	reg, err := action.NewRegistry()
	require.NoError(t, err)

	rs, err := pipeline.NewRuleset(name, mustInput(t, input), rules, reg, source.Options{})
	require.NoError(t, err)

	return rs
}

func mustGraph(t *testing.T, rulesets ...*pipeline.Ruleset) *pipeline.Graph {
	t.Helper()

	g, err := pipeline.NewGraph(rulesets)
	require.NoError(t, err)

	return g
}

func madridPlaces() geocode.Geocoder {
	return geocode.NewPlaces([]geocode.KnownPlace{{
		Place: geocode.Place{City: "Madrid", Country: "Spain", CountryCode: "ES", State: "Madrid"},
		Lat:   40.4168,
		Lon:   -3.7038,
	}}, 50)
}

func TestParseInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want    pipeline.Input
		name    string
		in      string
		wantErr bool
	}{
		{name: "cmdline", in: "cmdline", want: pipeline.Input{Kind: pipeline.InputCmdline}},
		{name: "path", in: "path:/media/in", want: pipeline.Input{Kind: pipeline.InputPath, Value: "/media/in"}},
		{name: "watch", in: " watch:/media/inbox ", want: pipeline.Input{Kind: pipeline.InputWatch, Value: "/media/inbox"}},
		{name: "ruleset", in: "ruleset:sorted", want: pipeline.Input{Kind: pipeline.InputRuleset, Value: "sorted"}},
		{name: "missing value", in: "path:", wantErr: true},
		{name: "unknown kind", in: "s3:bucket", wantErr: true},
		{name: "no kind", in: "/media", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := pipeline.ParseInput(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, pipeline.ErrConfiguration)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Kind != pipeline.InputRuleset, got.IsRoot())
		})
	}
}

func TestKind(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err  error
		want string
	}{
		"nil":           {err: nil, want: ""},
		"metadata":      {err: mediactx.ErrMetadata, want: pipeline.KindMetadata},
		"evaluation":    {err: cond.ErrEvaluation, want: pipeline.KindEvaluation},
		"template":      {err: &template.UnresolvedError{Vars: []string{"space.city"}}, want: pipeline.KindTemplate},
		"collision":     {err: template.ErrCollisionResolutionExhausted, want: pipeline.KindCollision},
		"action":        {err: action.ErrAction, want: pipeline.KindAction},
		"configuration": {err: pipeline.ErrConfiguration, want: pipeline.KindConfiguration},
		"canceled":      {err: context.Canceled, want: pipeline.KindCanceled},
		"unknown":       {err: errors.New("boom"), want: pipeline.KindUnknown},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, pipeline.Kind(tt.err))
		})
	}
}

func TestNewGraph(t *testing.T) {
	t.Parallel()

	r := rule.MustNew("", "default", "/out/{source.original}", action.Move)

	t.Run("order", func(t *testing.T) {
		t.Parallel()

		g := mustGraph(t,
			mustRuleset(t, "c", "ruleset:a", r),
			mustRuleset(t, "b", "ruleset:a", r),
			mustRuleset(t, "a", "cmdline", r),
			mustRuleset(t, "d", "ruleset:b", r),
		)

		assert.Equal(t, []string{"a", "b", "c", "d"}, g.Order())
		assert.Len(t, g.Downstream("a"), 2)
		assert.Empty(t, g.Downstream("d"))
	})

	tests := map[string][]*pipeline.Ruleset{
		"duplicate": {
			mustRuleset(t, "a", "cmdline", r),
			mustRuleset(t, "a", "path:/in", r),
		},
		"unknown ref": {
			mustRuleset(t, "a", "ruleset:missing", r),
		},
		"cycle": {
			mustRuleset(t, "root", "cmdline", r),
			mustRuleset(t, "a", "ruleset:b", r),
			mustRuleset(t, "b", "ruleset:a", r),
		},
		"self reference": {
			mustRuleset(t, "a", "ruleset:a", r),
		},
	}

	for name, rulesets := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := pipeline.NewGraph(rulesets)
			require.ErrorIs(t, err, pipeline.ErrConfiguration)
		})
	}
}

func TestNewGraphSharedInput(t *testing.T) {
	t.Parallel()

	reg, err := action.NewRegistry()
	require.NoError(t, err)

	r := rule.MustNew("", "default", "/out/{source.original}", action.Move)

	a, err := pipeline.NewRuleset("a", mustInput(t, "path:/in"), []*rule.Rule{r}, reg, source.Options{Recursive: true})
	require.NoError(t, err)

	b, err := pipeline.NewRuleset("b", mustInput(t, "path:/in"), []*rule.Rule{r}, reg, source.Options{})
	require.NoError(t, err)

	_, err = pipeline.NewGraph([]*pipeline.Ruleset{a, b})
	require.ErrorIs(t, err, pipeline.ErrConfiguration)

	c, err := pipeline.NewRuleset("c", mustInput(t, "path:/in"), []*rule.Rule{r}, reg, source.Options{Recursive: true})
	require.NoError(t, err)

	g, err := pipeline.NewGraph([]*pipeline.Ruleset{a, c})
	require.NoError(t, err)
	require.Len(t, g.Roots(), 1)
	assert.Len(t, g.Roots()[0], 2)
}

func TestGraphSelect(t *testing.T) {
	t.Parallel()

	r := rule.MustNew("", "default", "/out/{source.original}", action.Move)

	g := mustGraph(t,
		mustRuleset(t, "import", "cmdline", r),
		mustRuleset(t, "sort", "ruleset:import", r),
		mustRuleset(t, "backup", "ruleset:sort", r),
		mustRuleset(t, "other", "path:/in", r),
	)

	all, err := g.Select()
	require.NoError(t, err)
	assert.Len(t, all, 4)

	sel, err := g.Select("sort")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"import": true, "sort": true, "backup": true}, sel)

	_, err = g.Select("nope")
	require.ErrorIs(t, err, pipeline.ErrConfiguration)
}

func TestNewRuleset(t *testing.T) {
	t.Parallel()

	reg, err := action.NewRegistry()
	require.NoError(t, err)

	in := mustInput(t, "cmdline")

	_, err = pipeline.NewRuleset("", in, []*rule.Rule{rule.MustNew("", "default", "/x", action.Move)}, reg, source.Options{})
	require.ErrorIs(t, err, pipeline.ErrConfiguration)

	_, err = pipeline.NewRuleset("a", in, nil, reg, source.Options{})
	require.ErrorIs(t, err, pipeline.ErrConfiguration)

	_, err = pipeline.NewRuleset("a", in, []*rule.Rule{{Condition: "default", Template: "/x", Action: "teleport"}}, reg, source.Options{})
	require.ErrorIs(t, err, pipeline.ErrConfiguration)

	_, err = pipeline.NewRuleset("a", in, []*rule.Rule{{Condition: "default", Template: "/{nope.x}", Action: action.Move}}, reg, source.Options{})
	require.ErrorIs(t, err, pipeline.ErrConfiguration)

	rs, err := pipeline.NewRuleset("a", in, []*rule.Rule{{Condition: "default", Template: "/x", Action: action.Copy}}, reg, source.Options{})
	require.NoError(t, err)
	assert.Equal(t, action.Copy, rs.Action(0).Name)

	// Filters only apply to watch inputs.
	require.ErrorIs(t, rs.SetFilter(`file.endsWith(".jpg")`), pipeline.ErrConfiguration)
}

type countingLookup struct {
	values map[string]attr.Value
	reads  map[string]int
}

func (c *countingLookup) Lookup(name string) attr.Value {
	c.reads[name]++

	if v, ok := c.values[name]; ok {
		return v
	}

	return attr.Absent()
}

func TestRulesetMatchFirstWins(t *testing.T) {
	t.Parallel()

	rs := mustRuleset(t, "photos", "cmdline",
		rule.MustNew("r1", `meta.a == "no"`, "/out/1", action.Move),
		rule.MustNew("r2", `meta.b == "yes"`, "/out/2", action.Move),
		rule.MustNew("r3", `meta.c == "yes"`, "/out/3", action.Move),
	)

	l := &countingLookup{
		values: map[string]attr.Value{
			"meta.a": attr.String("yes"),
			"meta.b": attr.String("yes"),
			"meta.c": attr.String("yes"),
		},
		reads: map[string]int{},
	}

	assert.Equal(t, 1, rs.Match(l, nil))
	assert.Equal(t, 1, l.reads["meta.a"])
	assert.Equal(t, 1, l.reads["meta.b"])
	assert.Zero(t, l.reads["meta.c"])

	var failed []int

	bad := mustRuleset(t, "bad", "cmdline",
		rule.MustNew("", `meta.a > 3`, "/out/1", action.Move),
		rule.MustNew("", "default", "/out/2", action.Move),
	)
	assert.Equal(t, 1, bad.Match(l, func(i int, err error) {
		assert.ErrorIs(t, err, cond.ErrEvaluation)
		failed = append(failed, i)
	}))
	assert.Equal(t, []int{0}, failed)

	none := mustRuleset(t, "none", "cmdline", rule.MustNew("", `meta.z == "x"`, "/out/1", action.Move))
	assert.Equal(t, -1, none.Match(l, nil))
}

func travelRules(root string) []*rule.Rule {
	return []*rule.Rule{
		rule.MustNew("videos", `type == "video"`, filepath.Join(root, "Videos", "{source.original}"), action.Move),
		rule.MustNew("madrid", `type == "image" && space.city == "Madrid"`,
			filepath.Join(root, "Madrid", "{time.yyyy}-{time.mm}-{time.dd}_{time.hh}{time.min}{time.ss}{special.count}.{source.ext}"),
			action.Move),
		rule.MustNew("travel", `type == "image"`,
			filepath.Join(root, "Travel", "{space.country}", "{source.original}"), action.Move),
	}
}

func TestExecutorUnresolvedTemplate(t *testing.T) {
	t.Parallel()

	in, out := t.TempDir(), t.TempDir()
	src := probetest.WriteTIFF(t, in, "IMG_1.TIF", probetest.EXIF{Captured: captured})

	sink := &recorder{}
	g := mustGraph(t, mustRuleset(t, "photos", "cmdline", travelRules(out)...))

	e, err := pipeline.NewExecutor(g, &mediactx.Builder{Geocoder: madridPlaces()}, pipeline.WithSink(sink))
	require.NoError(t, err)

	summary, err := e.Run(t.Context(), []string{src})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors)

	got := sink.get()
	require.Len(t, got, 1)
	assert.Equal(t, pipeline.StatusError, got[0].Status)
	assert.Equal(t, pipeline.KindTemplate, got[0].ErrorKind)
	assert.Equal(t, "travel", got[0].Rule)
	assert.Equal(t, e.RunID(), got[0].RunID)

	assert.FileExists(t, src)
}

func TestExecutorMadrid(t *testing.T) {
	t.Parallel()

	run := func(t *testing.T, dryRun bool) (string, string) {
		t.Helper()

		in, out := t.TempDir(), t.TempDir()
		src := probetest.WriteTIFF(t, in, "IMG_1.TIF", probetest.EXIF{
			Captured: captured,
			GPS:      true,
			Lat:      40.4168,
			Lon:      -3.7038,
		})

		sink := &recorder{}
		g := mustGraph(t, mustRuleset(t, "photos", "cmdline", travelRules(out)...))

		e, err := pipeline.NewExecutor(g, &mediactx.Builder{Geocoder: madridPlaces()},
			pipeline.WithSink(sink), pipeline.WithDryRun(dryRun))
		require.NoError(t, err)

		_, err = e.Run(t.Context(), []string{src})
		require.NoError(t, err)

		got := sink.get()
		require.Len(t, got, 1)
		assert.Equal(t, "madrid", got[0].Rule)
		assert.Equal(t, 1, got[0].RuleIndex)

		rel, err := filepath.Rel(out, got[0].Destination)
		require.NoError(t, err)

		if dryRun {
			assert.Equal(t, pipeline.StatusDryRun, got[0].Status)
			assert.FileExists(t, src)
			assert.NoFileExists(t, got[0].Destination)
		} else {
			assert.Equal(t, pipeline.StatusApplied, got[0].Status)
			assert.NoFileExists(t, src)
			assert.FileExists(t, got[0].Destination)
		}

		return rel, got[0].Action
	}

	dryRel, dryAction := run(t, true)
	realRel, realAction := run(t, false)

	want := filepath.Join("Madrid", "2025-07-18_213005.tif")
	assert.Equal(t, want, dryRel)
	assert.Equal(t, want, realRel)
	assert.Equal(t, dryAction, realAction)
}

func TestExecutorEvaluationError(t *testing.T) {
	t.Parallel()

	in, out := t.TempDir(), t.TempDir()
	src := probetest.WriteTIFF(t, in, "IMG_1.TIF", probetest.EXIF{Captured: captured})

	t.Run("falls through", func(t *testing.T) {
		t.Parallel()

		sink := &recorder{}
		g := mustGraph(t, mustRuleset(t, "photos", "cmdline",
			rule.MustNew("bad", `time.year > "wide"`, filepath.Join(out, "bad", "{source.original}"), action.Copy),
			rule.MustNew("", "default", filepath.Join(out, "all", "{source.original}"), action.Copy),
		))

		e, err := pipeline.NewExecutor(g, &mediactx.Builder{}, pipeline.WithSink(sink))
		require.NoError(t, err)

		_, err = e.Run(t.Context(), []string{src})
		require.NoError(t, err)

		got := sink.get()
		require.Len(t, got, 1)
		assert.Equal(t, pipeline.StatusApplied, got[0].Status)
		assert.Equal(t, "#1", got[0].Rule)
		assert.FileExists(t, filepath.Join(out, "all", "IMG_1.TIF"))
	})

	t.Run("nothing else matches", func(t *testing.T) {
		t.Parallel()

		sink := &recorder{}
		g := mustGraph(t, mustRuleset(t, "photos", "cmdline",
			rule.MustNew("bad", `time.year > "wide"`, filepath.Join(out, "bad", "{source.original}"), action.Copy),
			rule.MustNew("videos", `type == "video"`, filepath.Join(out, "v", "{source.original}"), action.Copy),
		))

		e, err := pipeline.NewExecutor(g, &mediactx.Builder{}, pipeline.WithSink(sink))
		require.NoError(t, err)

		_, err = e.Run(t.Context(), []string{src})
		require.NoError(t, err)

		got := sink.get()
		require.Len(t, got, 1)
		assert.Equal(t, pipeline.StatusError, got[0].Status)
		assert.Equal(t, pipeline.KindEvaluation, got[0].ErrorKind)
	})
}

func TestExecutorNoMatch(t *testing.T) {
	t.Parallel()

	in, out := t.TempDir(), t.TempDir()
	src := probetest.WriteTIFF(t, in, "IMG_1.TIF", probetest.EXIF{Captured: captured})

	sink := &recorder{}
	g := mustGraph(t, mustRuleset(t, "photos", "cmdline",
		rule.MustNew("", `type == "video"`, filepath.Join(out, "{source.original}"), action.Move),
	))

	e, err := pipeline.NewExecutor(g, &mediactx.Builder{}, pipeline.WithSink(sink))
	require.NoError(t, err)

	summary, err := e.Run(t.Context(), []string{src})
	require.NoError(t, err)
	assert.Equal(t, pipeline.Summary{NoMatch: 1}, summary)
	assert.FileExists(t, src)
}

func TestExecutorMetadataError(t *testing.T) {
	t.Parallel()

	out := t.TempDir()

	sink := &recorder{}
	g := mustGraph(t, mustRuleset(t, "photos", "cmdline",
		rule.MustNew("", "default", filepath.Join(out, "{source.original}"), action.Move),
	))

	// The path vanishes between discovery and building.
	missing := filepath.Join(out, "gone.jpg")

	builder := builderFunc(func(ctx context.Context, _ string) (*mediactx.MediaContext, error) {
		return (&mediactx.Builder{}).Build(ctx, missing)
	})

	e, err := pipeline.NewExecutor(g, builder, pipeline.WithSink(sink))
	require.NoError(t, err)

	src := filepath.Join(out, "real.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	summary, err := e.Run(t.Context(), []string{src})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors)

	got := sink.get()
	require.Len(t, got, 1)
	assert.Equal(t, pipeline.KindMetadata, got[0].ErrorKind)
	assert.Equal(t, src, got[0].Source)
}

type builderFunc func(ctx context.Context, path string) (*mediactx.MediaContext, error)

func (f builderFunc) Build(ctx context.Context, path string) (*mediactx.MediaContext, error) {
	return f(ctx, path)
}

func TestExecutorChain(t *testing.T) {
	t.Parallel()

	in, sorted, backup := t.TempDir(), t.TempDir(), t.TempDir()
	src := probetest.WriteTIFF(t, in, "IMG_1.TIF", probetest.EXIF{Captured: captured})

	sink := &recorder{}
	g := mustGraph(t,
		mustRuleset(t, "sort", "path:"+in,
			rule.MustNew("", "default", filepath.Join(sorted, "{time.yyyy}", "{source.original}"), action.Move)),
		mustRuleset(t, "backup", "ruleset:sort",
			rule.MustNew("", `source.dir != ""`, filepath.Join(backup, "{source.original}"), action.Copy)),
	)

	e, err := pipeline.NewExecutor(g, &mediactx.Builder{}, pipeline.WithSink(sink))
	require.NoError(t, err)

	summary, err := e.Run(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Applied)

	moved := filepath.Join(sorted, "2025", "IMG_1.TIF")
	assert.NoFileExists(t, src)
	assert.FileExists(t, moved)
	assert.FileExists(t, filepath.Join(backup, "IMG_1.TIF"))

	got := sink.byRuleset("backup")
	require.Len(t, got, 1)
	assert.Equal(t, moved, got[0].Source)
}

func TestExecutorChainDryRun(t *testing.T) {
	t.Parallel()

	in, sorted, backup := t.TempDir(), t.TempDir(), t.TempDir()
	src := probetest.WriteTIFF(t, in, "IMG_1.TIF", probetest.EXIF{Captured: captured})

	sink := &recorder{}
	g := mustGraph(t,
		mustRuleset(t, "sort", "path:"+in,
			rule.MustNew("", "default", filepath.Join(sorted, "{time.yyyy}", "{source.original}"), action.Move)),
		mustRuleset(t, "backup", "ruleset:sort",
			rule.MustNew("", "default", filepath.Join(backup, "{time.yyyy}-{source.original}"), action.Copy)),
	)

	e, err := pipeline.NewExecutor(g, &mediactx.Builder{}, pipeline.WithSink(sink), pipeline.WithDryRun(true))
	require.NoError(t, err)

	summary, err := e.Run(t.Context(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.DryRun)
	assert.Zero(t, summary.Errors)

	moved := filepath.Join(sorted, "2025", "IMG_1.TIF")
	assert.FileExists(t, src)
	assert.NoFileExists(t, moved)

	got := sink.byRuleset("backup")
	require.Len(t, got, 1)
	assert.Equal(t, pipeline.StatusDryRun, got[0].Status)
	assert.Equal(t, moved, got[0].Source)
	assert.Equal(t, filepath.Join(backup, "2025-IMG_1.TIF"), got[0].Destination)
	assert.NoFileExists(t, got[0].Destination)
}

func TestExecutorChainSameDestination(t *testing.T) {
	t.Parallel()

	in, out := t.TempDir(), t.TempDir()
	probetest.WriteTIFF(t, in, "IMG_1.TIF", probetest.EXIF{Captured: captured})

	tmpl := filepath.Join(out, "{source.original}")

	for _, dryRun := range []bool{true, false} {
		sink := &recorder{}
		g := mustGraph(t,
			mustRuleset(t, "import", "path:"+in, rule.MustNew("", "default", tmpl, action.Move)),
			mustRuleset(t, "normalize", "ruleset:import", rule.MustNew("", "default", tmpl, action.Move)),
		)

		e, err := pipeline.NewExecutor(g, &mediactx.Builder{}, pipeline.WithSink(sink), pipeline.WithDryRun(dryRun))
		require.NoError(t, err)

		summary, err := e.Run(t.Context(), nil)
		require.NoError(t, err)
		assert.Zero(t, summary.Errors)

		got := sink.byRuleset("normalize")
		require.Len(t, got, 1)
		assert.Equal(t, filepath.Join(out, "IMG_1.TIF"), got[0].Destination, "dry run %t", dryRun)
		assert.True(t, got[0].InPlace, "dry run %t", dryRun)
	}

	assert.FileExists(t, filepath.Join(out, "IMG_1.TIF"))
	assert.NoFileExists(t, filepath.Join(out, "IMG_1_1.TIF"))
}

func TestExecutorSelect(t *testing.T) {
	t.Parallel()

	in, other, out := t.TempDir(), t.TempDir(), t.TempDir()
	probetest.WriteTIFF(t, in, "IMG_1.TIF", probetest.EXIF{Captured: captured})
	probetest.WriteTIFF(t, other, "IMG_2.TIF", probetest.EXIF{Captured: captured})

	sink := &recorder{}
	g := mustGraph(t,
		mustRuleset(t, "a", "path:"+in, rule.MustNew("", "default", filepath.Join(out, "a", "{source.original}"), action.Copy)),
		mustRuleset(t, "b", "path:"+other, rule.MustNew("", "default", filepath.Join(out, "b", "{source.original}"), action.Copy)),
	)

	e, err := pipeline.NewExecutor(g, &mediactx.Builder{}, pipeline.WithSink(sink), pipeline.WithRulesets("b"))
	require.NoError(t, err)

	_, err = e.Run(t.Context(), nil)
	require.NoError(t, err)

	assert.Empty(t, sink.byRuleset("a"))
	assert.Len(t, sink.byRuleset("b"), 1)

	_, err = pipeline.NewExecutor(g, &mediactx.Builder{}, pipeline.WithRulesets("zzz"))
	require.ErrorIs(t, err, pipeline.ErrConfiguration)
}

func TestExecutorConcurrentCollisions(t *testing.T) {
	t.Parallel()

	in, out := t.TempDir(), t.TempDir()

	var files []string
	for _, name := range []string{"a.TIF", "b.TIF", "c.TIF", "d.TIF", "e.TIF", "f.TIF"} {
		files = append(files, probetest.WriteTIFF(t, in, name, probetest.EXIF{Captured: captured}))
	}

	sink := &recorder{}
	g := mustGraph(t, mustRuleset(t, "photos", "cmdline",
		rule.MustNew("", "default", filepath.Join(out, "{time.yyyy}{time.mm}{time.dd}.{source.ext}"), action.Copy),
	))

	e, err := pipeline.NewExecutor(g, &mediactx.Builder{}, pipeline.WithSink(sink), pipeline.WithConcurrency(4))
	require.NoError(t, err)

	summary, err := e.Run(t.Context(), files)
	require.NoError(t, err)
	assert.Equal(t, len(files), summary.Applied)

	seen := map[string]bool{}
	for _, o := range sink.get() {
		assert.False(t, seen[o.Destination], "duplicate destination %s", o.Destination)
		seen[o.Destination] = true
		assert.FileExists(t, o.Destination)
	}

	assert.True(t, seen[filepath.Join(out, "20250718.tif")])
	assert.True(t, seen[filepath.Join(out, "20250718_5.tif")])
}

func TestExecutorInPlace(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	src := probetest.WriteTIFF(t, in, "IMG_1.TIF", probetest.EXIF{Captured: captured})

	sink := &recorder{}
	g := mustGraph(t, mustRuleset(t, "photos", "cmdline",
		rule.MustNew("", "default", filepath.Join(in, "{source.original}"), action.Move),
	))

	e, err := pipeline.NewExecutor(g, &mediactx.Builder{}, pipeline.WithSink(sink))
	require.NoError(t, err)

	_, err = e.Run(t.Context(), []string{src})
	require.NoError(t, err)

	got := sink.get()
	require.Len(t, got, 1)
	assert.Equal(t, pipeline.StatusApplied, got[0].Status)
	assert.True(t, got[0].InPlace)
	assert.FileExists(t, src)
}

func TestExecutorInPlaceCommand(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	src := probetest.WriteTIFF(t, in, "IMG_1.TIF", probetest.EXIF{Captured: captured})
	marker := filepath.Join(t.TempDir(), "tagged")

	sink := &recorder{}
	g := mustGraph(t, mustRuleset(t, "tag", "cmdline",
		rule.MustNew("", "default", "{source.path}", action.InlinePrefix+"touch "+marker),
	))

	e, err := pipeline.NewExecutor(g, &mediactx.Builder{}, pipeline.WithSink(sink))
	require.NoError(t, err)

	_, err = e.Run(t.Context(), []string{src})
	require.NoError(t, err)

	got := sink.get()
	require.Len(t, got, 1)
	assert.Equal(t, pipeline.StatusApplied, got[0].Status)
	assert.True(t, got[0].InPlace)
	assert.FileExists(t, src)
	assert.FileExists(t, marker)
}

func TestExecutorWatch(t *testing.T) {
	t.Parallel()

	in, out := t.TempDir(), t.TempDir()

	sink := &recorder{}
	g := mustGraph(t, mustRuleset(t, "inbox", "watch:"+in,
		rule.MustNew("", "default", filepath.Join(out, "{source.original}"), action.Move),
	))

	e, err := pipeline.NewExecutor(g, &mediactx.Builder{}, pipeline.WithSink(sink),
		pipeline.WithWatchTiming(20*time.Millisecond, 10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())

	done := make(chan error, 1)

	go func() {
		_, err := e.Run(ctx, nil)
		done <- err
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(in, source.LockFileName))
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	probetest.WriteTIFF(t, in, "IMG_1.TIF", probetest.EXIF{Captured: captured})

	require.Eventually(t, func() bool {
		return len(sink.get()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	assert.FileExists(t, filepath.Join(out, "IMG_1.TIF"))

	cancel()
	require.NoError(t, <-done)
}
