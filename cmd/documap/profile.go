package main

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/documap/documap/pkg/adapter"
	"github.com/documap/documap/pkg/datamap"
	"github.com/documap/documap/pkg/mapping"
)

// profile is the on-disk connection profile. Collections list the mapped
// collection names and their identity fields; documents are handled
// dynamically, no struct mapping is required on the CLI side.
type profile struct {
	Connection  adapter.ConnectionConfig `yaml:"connection"`
	Collections []collectionProfile      `yaml:"collections"`
}

type collectionProfile struct {
	Name          string `yaml:"name"`
	IdentityField string `yaml:"identityField"`
}

// loadProfile reads and parses the connection profile.
func loadProfile(path string) (*profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}

	var p profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	if p.Connection.ConnectionType == "" {
		p.Connection.ConnectionType = string(adapter.MongoDB)
	}
	return &p, nil
}

// registryOf builds the collection registry from the profile. A collection
// used on the command line but absent from the profile is still usable;
// it gets a dynamic mapping keyed on _id.
func (p *profile) registryOf(requested string) (*mapping.Registry, error) {
	registry := mapping.NewRegistry()
	for _, c := range p.Collections {
		identity := c.IdentityField
		if identity == "" {
			identity = "_id"
		}
		collection, err := mapping.NewDynamicCollection(c.Name, identity)
		if err != nil {
			return nil, err
		}
		registry.Add(collection)
	}

	if _, err := registry.Get(requested); err != nil {
		collection, err := mapping.NewDynamicCollection(requested, "_id")
		if err != nil {
			return nil, err
		}
		registry.Add(collection)
	}
	return registry, nil
}

// openAdapter loads the profile, prompts for a missing password and
// connects through the registered driver.
func openAdapter(ctx context.Context, collection string) (*datamap.Adapter, error) {
	p, err := loadProfile(configFile)
	if err != nil {
		return nil, err
	}

	if p.Connection.Username != "" && p.Connection.Password == "" {
		fmt.Printf("Password for %s@%s: ", p.Connection.Username, p.Connection.Host)
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}
		p.Connection.Password = string(password)
	}

	registry, err := p.registryOf(collection)
	if err != nil {
		return nil, err
	}

	return datamap.Connect(ctx, p.Connection, registry, nil)
}
