package media

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/userdir/internal/config"
	"github.com/pders01/userdir/internal/validation"
)

func stubLookPath(t *testing.T, installed ...string) {
	t.Helper()
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })
	lookPath = func(file string) (string, error) {
		for _, name := range installed {
			if name == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", exec.ErrNotFound
	}
}

func testRegistry(t *testing.T, goos string) *Registry {
	t.Helper()
	r, err := NewRegistry()
	require.NoError(t, err)
	r.goos = goos
	return r
}

func TestRegistry_BuiltinDefinitions(t *testing.T) {
	r := testRegistry(t, "linux")

	for _, name := range []string{"open", "xdg-open", "start", "feh", "eog", "firefox"} {
		_, ok := r.Definition(name)
		assert.True(t, ok, name)
	}
}

func TestRegistry_Command(t *testing.T) {
	const link = "https://dummyjson.com/icon/emilys/128"

	tests := []struct {
		name     string
		goos     string
		viewer   string
		kind     Kind
		wantArgs []string
		wantErr  bool
	}{
		{name: "feh image", goos: "linux", viewer: "feh", kind: KindImage,
			wantArgs: []string{"feh", "--scale-down", "--auto-zoom", "--title", "userdir", link}},
		{name: "feh cannot browse", goos: "linux", viewer: "feh", kind: KindPage, wantErr: true},
		{name: "feh on darwin", goos: "darwin", viewer: "feh", kind: KindImage, wantErr: true},
		{name: "open page", goos: "darwin", viewer: "open", kind: KindPage, wantArgs: []string{"open", link}},
		{name: "windows start uses cmd", goos: "windows", viewer: "start", kind: KindImage,
			wantArgs: []string{"cmd", "/c", "start", "", link}},
		{name: "unknown viewer", goos: "linux", viewer: "my-viewer", kind: KindImage, wantArgs: []string{"my-viewer", link}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRegistry(t, tt.goos)
			cmd, err := r.Command(tt.viewer, tt.kind, link)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantArgs, cmd.Args)
		})
	}
}

func TestRegistry_LoadFile(t *testing.T) {
	r := testRegistry(t, "linux")
	path := filepath.Join(t.TempDir(), "viewers.toml")
	content := `
[viewers.feh]
description = "feh fullscreen"
platforms = ["linux"]
[viewers.feh.image]
args = ["-F"]

[viewers.nsxiv]
platforms = ["linux"]
[viewers.nsxiv.image]
args = ["-b"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, r.LoadFile(path))

	cmd, err := r.Command("feh", KindImage, "https://x.org/a.png")
	require.NoError(t, err)
	assert.Equal(t, []string{"feh", "-F", "https://x.org/a.png"}, cmd.Args)

	cmd, err = r.Command("nsxiv", KindImage, "https://x.org/a.png")
	require.NoError(t, err)
	assert.Equal(t, []string{"nsxiv", "-b", "https://x.org/a.png"}, cmd.Args)

	assert.NoError(t, r.LoadFile(filepath.Join(t.TempDir(), "missing.toml")))
	assert.NoError(t, r.LoadFile(""))

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[viewers.x\n"), 0o644))
	assert.Error(t, r.LoadFile(bad))
}

func TestFindCommand(t *testing.T) {
	r := testRegistry(t, "linux")

	stubLookPath(t, "eog", "cmd")
	assert.Equal(t, "eog", findCommand(r, "feh", "eog", "xdg-open"))
	assert.Equal(t, "", findCommand(r, "feh"))
	assert.Equal(t, "", findCommand(r))
	// start resolves through its command override
	assert.Equal(t, "start", findCommand(r, "start"))
}

func TestViewersFor(t *testing.T) {
	cfg := config.MediaConfig{
		Darwin:  config.Viewers{Image: []string{"d"}},
		Linux:   config.Viewers{Image: []string{"l"}},
		Windows: config.Viewers{Image: []string{"w"}},
	}

	assert.Equal(t, []string{"d"}, viewersFor(cfg, "darwin").Image)
	assert.Equal(t, []string{"l"}, viewersFor(cfg, "linux").Image)
	assert.Equal(t, []string{"w"}, viewersFor(cfg, "windows").Image)
	assert.Equal(t, []string{"d"}, viewersFor(cfg, "plan9").Image)
}

func TestNewLauncher_FallsBackToDefaultOpener(t *testing.T) {
	stubLookPath(t)
	cfg := config.TestConfig()
	cfg.Media.DefaultOpener = "my-opener"

	l := NewLauncher(cfg)

	assert.Equal(t, "my-opener", l.imageViewer)
	assert.Equal(t, "my-opener", l.browser)
}

func TestNewLauncher_PicksInstalledViewer(t *testing.T) {
	cfg := config.TestConfig()
	cfg.Media.Darwin = config.Viewers{Image: []string{"firefox"}}
	cfg.Media.Linux = config.Viewers{Image: []string{"firefox"}}
	cfg.Media.Windows = config.Viewers{Image: []string{"firefox"}}
	stubLookPath(t, "firefox")

	l := NewLauncher(cfg)

	assert.Equal(t, "firefox", l.imageViewer)
}

func TestLauncher_Open(t *testing.T) {
	var started []*exec.Cmd
	l := &Launcher{
		imageViewer:   "feh",
		browser:       "firefox",
		defaultOpener: "xdg-open",
		registry:      testRegistry(t, "linux"),
		validator:     validation.NewPermissiveURLValidator(),
		start: func(cmd *exec.Cmd) error {
			started = append(started, cmd)
			return nil
		},
	}

	require.NoError(t, l.OpenImage("https://dummyjson.com/icon/emilys/128"))
	require.NoError(t, l.OpenPage("https://dummyjson.com/users/1"))

	require.Len(t, started, 2)
	assert.Equal(t, "feh", started[0].Args[0])
	assert.Equal(t, []string{"firefox", "--new-tab", "https://dummyjson.com/users/1"}, started[1].Args)
}

func TestLauncher_FallsBackWhenViewerUnsupported(t *testing.T) {
	l := &Launcher{
		imageViewer:   "feh",
		browser:       "feh",
		defaultOpener: "xdg-open",
		registry:      testRegistry(t, "linux"),
		validator:     validation.NewPermissiveURLValidator(),
		start:         func(*exec.Cmd) error { return nil },
	}

	cmd, err := l.Command(KindPage, "https://dummyjson.com/users/1")
	require.NoError(t, err)
	assert.Equal(t, []string{"xdg-open", "https://dummyjson.com/users/1"}, cmd.Args)
}

func TestLauncher_RejectsUnsafeLinks(t *testing.T) {
	var started int
	l := &Launcher{
		imageViewer:   "feh",
		defaultOpener: "xdg-open",
		registry:      testRegistry(t, "linux"),
		validator:     validation.NewPermissiveURLValidator(),
		start: func(*exec.Cmd) error {
			started++
			return nil
		},
	}

	for _, link := range []string{"", "file:///etc/passwd", "--help", "javascript:alert(1)"} {
		assert.Error(t, l.OpenImage(link), link)
	}
	assert.Zero(t, started)
}

func TestLauncher_StartError(t *testing.T) {
	l := &Launcher{
		imageViewer:   "feh",
		defaultOpener: "xdg-open",
		registry:      testRegistry(t, "linux"),
		validator:     validation.NewPermissiveURLValidator(),
		start:         func(*exec.Cmd) error { return errors.New("boom") },
	}

	err := l.OpenImage("https://dummyjson.com/icon/x/128")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start feh")
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "image", KindImage.String())
	assert.Equal(t, "page", KindPage.String())
	assert.Equal(t, "unknown", Kind(9).String())
}
