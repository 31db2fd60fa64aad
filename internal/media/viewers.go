package media

import (
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

//go:embed viewers.toml
var viewersTOML []byte

// Kind is what a link points at.
type Kind int

const (
	KindImage Kind = iota
	KindPage
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindPage:
		return "page"
	default:
		return "unknown"
	}
}

// ViewerDefinition describes how to invoke one external program.
type ViewerDefinition struct {
	Description string   `toml:"description"`
	Platforms   []string `toml:"platforms"`
	// Command overrides the executable when it differs from the viewer name.
	Command string      `toml:"command,omitempty"`
	Image   *ViewerArgs `toml:"image,omitempty"`
	Browser *ViewerArgs `toml:"browser,omitempty"`
}

type ViewerArgs struct {
	Args []string `toml:"args"`
}

type viewersFile struct {
	Viewers map[string]ViewerDefinition `toml:"viewers"`
}

// Registry maps viewer names to their definitions.
type Registry struct {
	viewers map[string]ViewerDefinition
	goos    string
}

// NewRegistry parses the built-in definitions.
func NewRegistry() (*Registry, error) {
	defs, err := parseViewers(viewersTOML)
	if err != nil {
		return nil, fmt.Errorf("parsing viewers.toml: %w", err)
	}
	return &Registry{viewers: defs, goos: runtime.GOOS}, nil
}

func parseViewers(data []byte) (map[string]ViewerDefinition, error) {
	var f viewersFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Viewers == nil {
		f.Viewers = map[string]ViewerDefinition{}
	}
	return f.Viewers, nil
}

// LoadFile merges definitions from path over the current ones. A missing file
// is not an error.
func (r *Registry) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	defs, err := parseViewers(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	for name, def := range defs {
		r.viewers[name] = def
	}
	return nil
}

// Definition returns the named viewer definition.
func (r *Registry) Definition(name string) (ViewerDefinition, bool) {
	def, ok := r.viewers[name]
	return def, ok
}

// Command builds the invocation of viewer name for link. Unknown viewers are
// run with the link as their only argument.
func (r *Registry) Command(name string, kind Kind, link string) (*exec.Cmd, error) {
	def, ok := r.viewers[name]
	if !ok {
		return exec.Command(name, link), nil
	}

	if !slices.Contains(def.Platforms, r.goos) {
		return nil, fmt.Errorf("%s not supported on %s", name, r.goos)
	}

	var args *ViewerArgs
	switch kind {
	case KindImage:
		args = def.Image
	case KindPage:
		args = def.Browser
	}
	if args == nil {
		return nil, fmt.Errorf("%s cannot open %s links", name, kind)
	}

	bin := name
	if def.Command != "" {
		bin = def.Command
	}
	argv := append(slices.Clone(args.Args), link)
	return exec.Command(bin, argv...), nil
}
