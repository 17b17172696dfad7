// Package bot loads a bot bundle: a YAML manifest naming the flows that
// make up one conversational application, each parsed and validated at
// load time.
package bot

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/SINHASantos/csml-engine/pkg/domain"
	"github.com/SINHASantos/csml-engine/pkg/parser"
)

// Manifest is the on-disk shape of bot.yaml.
type Manifest struct {
	Name        string    `yaml:"name"`
	DefaultFlow string    `yaml:"default_flow"`
	Flows       []FlowRef `yaml:"flows"`
}

// FlowRef names one flow source file.
type FlowRef struct {
	ID   string `yaml:"id"`
	File string `yaml:"file"`
}

// Bot is a loaded bundle of parsed flows.
type Bot struct {
	Name        string
	DefaultFlow string
	flows       map[string]*domain.Flow
}

// Load reads a manifest and parses every flow it references. Parse errors
// are surfaced per file; duplicate flow ids fail the load.
func Load(manifestPath string) (*Bot, error) {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if len(m.Flows) == 0 {
		return nil, fmt.Errorf("manifest %s declares no flows", manifestPath)
	}

	dir := filepath.Dir(manifestPath)
	b := &Bot{
		Name:        m.Name,
		DefaultFlow: m.DefaultFlow,
		flows:       make(map[string]*domain.Flow, len(m.Flows)),
	}
	for _, ref := range m.Flows {
		if _, dup := b.flows[ref.ID]; dup {
			return nil, fmt.Errorf("duplicate flow id %q in manifest", ref.ID)
		}
		src, err := os.ReadFile(filepath.Join(dir, ref.File))
		if err != nil {
			return nil, fmt.Errorf("reading flow %q: %w", ref.ID, err)
		}
		flow, err := parser.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parsing flow %q: %w", ref.ID, err)
		}
		flow.ID = ref.ID
		b.flows[ref.ID] = flow
	}
	if b.DefaultFlow == "" {
		b.DefaultFlow = m.Flows[0].ID
	}
	if _, ok := b.flows[b.DefaultFlow]; !ok {
		return nil, fmt.Errorf("default flow %q is not declared in the manifest", b.DefaultFlow)
	}
	return b, nil
}

// FromFlows builds a Bot from already-parsed flows, for library callers and
// tests. The first flow is the default.
func FromFlows(name string, flows ...*domain.Flow) (*Bot, error) {
	if len(flows) == 0 {
		return nil, fmt.Errorf("a bot requires at least one flow")
	}
	b := &Bot{Name: name, DefaultFlow: flows[0].ID, flows: make(map[string]*domain.Flow, len(flows))}
	for _, f := range flows {
		if _, dup := b.flows[f.ID]; dup {
			return nil, fmt.Errorf("duplicate flow id %q", f.ID)
		}
		b.flows[f.ID] = f
	}
	return b, nil
}

// Flow returns a flow by id.
func (b *Bot) Flow(id string) (*domain.Flow, bool) {
	f, ok := b.flows[id]
	return f, ok
}

// FlowIDs lists the loaded flow ids.
func (b *Bot) FlowIDs() []string {
	ids := make([]string, 0, len(b.flows))
	for id := range b.flows {
		ids = append(ids, id)
	}
	return ids
}
