package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/softsim/internal/config"
)

type Registry struct {
	scenes map[string]func(*config.Config) (Scene, error)
}

func NewRegistry() *Registry {
	r := &Registry{
		scenes: make(map[string]func(*config.Config) (Scene, error)),
	}
	r.scenes[config.SceneSoftBody] = NewSoftBodyScene
	r.scenes[config.SceneFluid] = NewFluidScene
	return r
}

// Build validates cfg and constructs the scene it names.
func (r *Registry) Build(cfg *config.Config) (Scene, error) {
	fn, ok := r.scenes[cfg.Scene]
	if !ok {
		return nil, fmt.Errorf("unknown scene: %s", cfg.Scene)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return fn(cfg)
}

func (r *Registry) ListScenes() []string {
	names := make([]string, 0, len(r.scenes))
	for name := range r.scenes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
