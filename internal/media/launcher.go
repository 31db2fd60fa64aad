// Package media hands avatar images and profile links to external programs.
package media

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/pders01/userdir/internal/config"
	"github.com/pders01/userdir/internal/debuglog"
	"github.com/pders01/userdir/internal/validation"
)

var lookPath = exec.LookPath

type Launcher struct {
	imageViewer   string
	browser       string
	defaultOpener string
	registry      *Registry
	validator     *validation.URLValidator
	start         func(*exec.Cmd) error
}

func NewLauncher(cfg *config.Config) *Launcher {
	registry, err := NewRegistry()
	if err != nil {
		debuglog.Warnf("media: %v", err)
		registry = &Registry{viewers: map[string]ViewerDefinition{}, goos: runtime.GOOS}
	}
	if err := registry.LoadFile(cfg.Media.ViewersFile); err != nil {
		debuglog.Warnf("media: %v", err)
	}

	defaultOpener := cfg.Media.DefaultOpener
	if defaultOpener == "" {
		defaultOpener = platformOpener(runtime.GOOS)
	}

	viewers := viewersFor(cfg.Media, runtime.GOOS)

	l := &Launcher{
		defaultOpener: defaultOpener,
		registry:      registry,
		// links come from remote records; only the scheme matters here
		validator: validation.NewPermissiveURLValidator(),
		start:     startDetached,
	}
	l.imageViewer = findCommand(registry, viewers.Image...)
	l.browser = findCommand(registry, viewers.Browser...)

	if l.imageViewer == "" {
		l.imageViewer = l.defaultOpener
	}
	if l.browser == "" {
		l.browser = l.defaultOpener
	}

	return l
}

func viewersFor(cfg config.MediaConfig, goos string) config.Viewers {
	switch goos {
	case "darwin":
		return cfg.Darwin
	case "linux":
		return cfg.Linux
	case "windows":
		return cfg.Windows
	default:
		return cfg.Darwin
	}
}

func platformOpener(goos string) string {
	switch goos {
	case "linux":
		return "xdg-open"
	case "windows":
		return "start"
	default:
		return "open"
	}
}

// OpenImage shows an image URL in the configured image viewer.
func (l *Launcher) OpenImage(link string) error {
	return l.Open(KindImage, link)
}

// OpenPage opens a URL in the configured browser.
func (l *Launcher) OpenPage(link string) error {
	return l.Open(KindPage, link)
}

func (l *Launcher) Open(kind Kind, link string) error {
	cmd, err := l.Command(kind, link)
	if err != nil {
		return err
	}
	debuglog.Infof("media: opening %s with %v", kind, cmd.Args)
	if err := l.start(cmd); err != nil {
		return fmt.Errorf("failed to start %s: %w", cmd.Args[0], err)
	}
	return nil
}

// Command returns the invocation Open would start, without starting it.
func (l *Launcher) Command(kind Kind, link string) (*exec.Cmd, error) {
	valid, err := l.validator.ValidateLink(link)
	if err != nil {
		return nil, fmt.Errorf("refusing to open %q: %w", link, err)
	}

	viewer := l.defaultOpener
	switch kind {
	case KindImage:
		viewer = l.imageViewer
	case KindPage:
		viewer = l.browser
	}
	if viewer == "" {
		return nil, fmt.Errorf("no application found to open %s", kind)
	}

	cmd, err := l.registry.Command(viewer, kind, valid)
	if err != nil {
		debuglog.Debugf("media: %v, falling back to %s", err, l.defaultOpener)
		cmd, err = l.registry.Command(l.defaultOpener, kind, valid)
		if err != nil {
			cmd = exec.Command(l.defaultOpener, valid)
		}
	}
	return cmd, nil
}

// startDetached launches a GUI program without waiting for it.
func startDetached(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

// findCommand returns the first viewer whose executable is installed.
func findCommand(r *Registry, names ...string) string {
	for _, name := range names {
		bin := name
		if def, ok := r.Definition(name); ok && def.Command != "" {
			bin = def.Command
		}
		if _, err := lookPath(bin); err == nil {
			return name
		}
	}
	return ""
}
