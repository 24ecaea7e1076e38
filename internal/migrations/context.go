// Package migrations resolves where a project's schema lives and which server
// version it declares.
package migrations

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"evalgo.org/portico/internal/ver"
)

const (
	// ProjectFile marks a project root.
	ProjectFile = "portico.toml"

	// DefaultSchemaDir is used outside of a project when no directory is given.
	DefaultSchemaDir = "./dbschema"

	projectSchemaDir = "dbschema"
)

// Options are the user supplied overrides.
type Options struct {
	SchemaDir string
}

// Context is what migration commands work with.
type Context struct {
	SchemaDir string

	// ServerVersion is the version declared by the project. It is nil when
	// no project file was read; a project file without the entry declares
	// the stable channel.
	ServerVersion *ver.Query
}

// Project is the content of a project file.
type Project struct {
	Dir           string
	SchemaDir     string
	ServerVersion ver.Query
}

// ReadProject reads the project file in dir. A relative schema directory is
// resolved against dir.
func ReadProject(dir string) (*Project, error) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, ProjectFile))
	v.SetConfigType("toml")
	v.SetDefault("project.schema-dir", projectSchemaDir)
	v.SetDefault("server.version", "")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Join(dir, ProjectFile), err)
	}

	query, err := ver.ParseQuery(v.GetString("server.version"))
	if err != nil {
		return nil, fmt.Errorf("%s: server.version: %w", filepath.Join(dir, ProjectFile), err)
	}

	schemaDir := v.GetString("project.schema-dir")
	if !filepath.IsAbs(schemaDir) {
		schemaDir = filepath.Join(dir, schemaDir)
	}
	return &Project{Dir: dir, SchemaDir: schemaDir, ServerVersion: query}, nil
}

// FindProjectDir walks up from start to the first directory holding a
// project file. It returns "" when there is none.
func FindProjectDir(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		_, err := os.Stat(filepath.Join(dir, ProjectFile))
		switch {
		case err == nil:
			return dir, nil
		case !errors.Is(err, os.ErrNotExist):
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// FromProjectOrConfig resolves the schema directory from opts, else from the
// project enclosing workDir, else DefaultSchemaDir. The server version is only
// known when the project file was read.
func FromProjectOrConfig(opts Options, workDir string) (*Context, error) {
	if opts.SchemaDir != "" {
		return &Context{SchemaDir: opts.SchemaDir}, nil
	}

	projectDir, err := FindProjectDir(workDir)
	if err != nil {
		return nil, err
	}
	if projectDir == "" {
		return &Context{SchemaDir: DefaultSchemaDir}, nil
	}

	project, err := ReadProject(projectDir)
	if err != nil {
		return nil, err
	}
	return &Context{SchemaDir: project.SchemaDir, ServerVersion: &project.ServerVersion}, nil
}
