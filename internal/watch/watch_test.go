package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/dirprocess/internal/config"
	"git.home.luguber.info/inful/dirprocess/internal/pipeline"
)

type fakeProcessor struct {
	mu    sync.Mutex
	full  int
	files [][]string
}

func (f *fakeProcessor) Run(context.Context) (*pipeline.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.full++
	return &pipeline.Report{}, nil
}

func (f *fakeProcessor) ProcessFiles(_ context.Context, paths []string) (*pipeline.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = append(f.files, paths)
	return &pipeline.Report{}, nil
}

func (f *fakeProcessor) snapshot() (int, [][]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.full, append([][]string(nil), f.files...)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := &config.Config{
		InputRoot:   filepath.Join(base, "in"),
		ProcessRoot: filepath.Join(base, "out"),
		TemplateHandler: config.TemplateHandlerConfig{
			TemplateRoot: filepath.Join(base, "templates"),
		},
	}
	for _, dir := range []string{cfg.InputRoot, cfg.ProcessRoot, cfg.TemplateHandler.TemplateRoot} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	return cfg
}

func TestClassify(t *testing.T) {
	cfg := testConfig(t)
	w := New(cfg, &fakeProcessor{})
	in := func(p string) string { return filepath.Join(cfg.InputRoot, p) }
	tpl := func(p string) string { return filepath.Join(cfg.TemplateHandler.TemplateRoot, p) }

	newDir := in("newdir")
	require.NoError(t, os.MkdirAll(newDir, 0o755))

	tests := []struct {
		name string
		ev   fsnotify.Event
		want action
	}{
		{"write in input", fsnotify.Event{Name: in("a.twig"), Op: fsnotify.Write}, actionFile},
		{"create in input", fsnotify.Event{Name: in("b.css"), Op: fsnotify.Create}, actionFile},
		{"remove in input", fsnotify.Event{Name: in("a.twig"), Op: fsnotify.Remove}, actionIgnore},
		{"chmod in input", fsnotify.Event{Name: in("a.twig"), Op: fsnotify.Chmod}, actionIgnore},
		{"template write", fsnotify.Event{Name: tpl("base.twig"), Op: fsnotify.Write}, actionFull},
		{"template removed", fsnotify.Event{Name: tpl("base.twig"), Op: fsnotify.Remove}, actionFull},
		{"hidden file", fsnotify.Event{Name: in(".a.twig.swp"), Op: fsnotify.Write}, actionIgnore},
		{"editor backup", fsnotify.Event{Name: in("a.twig~"), Op: fsnotify.Write}, actionIgnore},
		{"new directory", fsnotify.Event{Name: newDir, Op: fsnotify.Create}, actionWatchDir},
		{"outside roots", fsnotify.Event{Name: "/elsewhere/x", Op: fsnotify.Write}, actionIgnore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, w.classify(tt.ev))
		})
	}
}

func TestClassifyNestedProcessRoot(t *testing.T) {
	cfg := testConfig(t)
	cfg.ProcessRoot = filepath.Join(cfg.InputRoot, "build")
	w := New(cfg, &fakeProcessor{})

	ev := fsnotify.Event{Name: filepath.Join(cfg.ProcessRoot, "index.html"), Op: fsnotify.Write}
	require.Equal(t, actionIgnore, w.classify(ev))
}

func TestRootsSkipsNestedTemplateRoot(t *testing.T) {
	cfg := testConfig(t)
	require.Len(t, New(cfg, &fakeProcessor{}).roots(), 2)

	cfg.TemplateHandler.TemplateRoot = cfg.InputRoot
	require.Equal(t, []string{cfg.InputRoot}, New(cfg, &fakeProcessor{}).roots())
}

func TestShouldIgnoreEvent(t *testing.T) {
	for _, p := range []string{"/x/.hidden", "/x/file~", "/x/a.swp", "/x/#a#", "/x/4913"} {
		require.True(t, shouldIgnoreEvent(p), p)
	}
	for _, p := range []string{"/x/index.twig", "/x/style.css"} {
		require.False(t, shouldIgnoreEvent(p), p)
	}
}

func TestFlushChoosesRunKind(t *testing.T) {
	cfg := testConfig(t)
	proc := &fakeProcessor{}
	var reports int
	w := New(cfg, proc, WithReportHandler(func(*pipeline.Report, error) { reports++ }))

	b := newBatch()
	b.paths["/in/b"] = struct{}{}
	b.paths["/in/a"] = struct{}{}
	w.flush(context.Background(), b)
	w.flush(context.Background(), &batch{full: true})

	full, files := proc.snapshot()
	require.Equal(t, 1, full)
	require.Equal(t, [][]string{{"/in/a", "/in/b"}}, files)
	require.Equal(t, 2, reports)
}

func TestRunProcessesChanges(t *testing.T) {
	cfg := testConfig(t)
	proc := &fakeProcessor{}
	w := New(cfg, proc, WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		full, _ := proc.snapshot()
		return full == 1
	}, 5*time.Second, 10*time.Millisecond, "initial full run")

	page := filepath.Join(cfg.InputRoot, "page.twig")
	require.NoError(t, os.WriteFile(page, []byte("x"), 0o600))
	require.Eventually(t, func() bool {
		_, files := proc.snapshot()
		for _, batch := range files {
			for _, p := range batch {
				if p == page {
					return true
				}
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond, "incremental run for changed file")

	require.NoError(t, os.WriteFile(filepath.Join(cfg.TemplateHandler.TemplateRoot, "base.twig"), []byte("b"), 0o600))
	require.Eventually(t, func() bool {
		full, _ := proc.snapshot()
		return full >= 2
	}, 5*time.Second, 10*time.Millisecond, "full run for template change")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRunMissingInputRoot(t *testing.T) {
	cfg := testConfig(t)
	cfg.InputRoot = filepath.Join(cfg.InputRoot, "absent")

	err := New(cfg, &fakeProcessor{}).Run(context.Background())
	require.Error(t, err)
}

func TestResyncScheduler(t *testing.T) {
	calls := make(chan struct{}, 4)
	s, err := newResyncScheduler(20*time.Millisecond, func() {
		select {
		case calls <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	s.start()
	defer func() { require.NoError(t, s.stop()) }()

	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("resync job did not run")
	}
}
