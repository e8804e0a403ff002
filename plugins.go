package mnet

// plugins.go loads custom variant registrations from compiled plugin
// files.  A plugin exports
//
//	func RegisterTypes(reg *mnet.Registry)
//
// and registers its device, link, interface, and topology variants
// there.  Loading happens during the registry's write phase, before any
// topology is built.

import (
	"os"
	"path/filepath"
	"plugin"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// LoadPlugins opens every .so file in dir and runs its RegisterTypes
// against the registry.  Files are visited in lexical order, so later
// plugins can overwrite earlier registrations deliberately.
func LoadPlugins(reg *Registry, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "read plugin dir %s", dir)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".so" {
			continue
		}
		pathName := filepath.Join(dir, entry.Name())
		plug, err := plugin.Open(pathName)
		if err != nil {
			return errors.Wrapf(err, "open plugin %s", pathName)
		}
		sym, err := plug.Lookup("RegisterTypes")
		if err != nil {
			return errors.Wrapf(err, "plugin %s", pathName)
		}
		register, ok := sym.(func(*Registry))
		if !ok {
			return errors.Errorf("plugin %s: RegisterTypes has the wrong signature", pathName)
		}
		log.Infof("loading plugin %s", pathName)
		register(reg)
	}
	return nil
}
