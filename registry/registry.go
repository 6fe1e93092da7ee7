package registry

import (
	"context"
	"errors"
	"filepipe/database"
	"filepipe/database/model"
	"filepipe/database/repository"
	L "filepipe/logger"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var sourceNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// Registry owns scan sources, file type rules and knowledge base mappings.
type Registry struct {
	sources   repository.SourceRepository
	fileTypes repository.FileTypeRepository
	mappings  repository.MappingRepository
}

func New(db *database.DB) *Registry {
	return &Registry{
		sources:   repository.NewSourceRepository(db),
		fileTypes: repository.NewFileTypeRepository(db),
		mappings:  repository.NewMappingRepository(db),
	}
}

func normalizeSource(src *model.ScanSource) error {
	src.Name = strings.TrimSpace(src.Name)
	if !sourceNamePattern.MatchString(src.Name) {
		return invalid("name", "%q must be 1-64 letters, digits, '.', '_' or '-'", src.Name)
	}
	switch src.Kind {
	case model.SOURCE_KIND_LOCAL:
		if src.Local == nil || strings.TrimSpace(src.Local.Path) == "" {
			return invalid("path", "local sources need a directory path")
		}
		if src.Ftp != nil {
			return invalid("kind", "local source %s cannot carry ftp settings", src.Name)
		}
		p, err := filepath.Abs(strings.TrimSpace(src.Local.Path))
		if err != nil {
			return invalid("path", "%v", err)
		}
		src.Local.Path = p
	case model.SOURCE_KIND_FTP:
		if src.Ftp == nil || strings.TrimSpace(src.Ftp.Host) == "" {
			return invalid("host", "ftp sources need a host")
		}
		if src.Local != nil {
			return invalid("kind", "ftp source %s cannot carry local settings", src.Name)
		}
		src.Ftp.Host = strings.TrimSpace(src.Ftp.Host)
		if src.Ftp.Port == 0 {
			src.Ftp.Port = model.DEFAULT_FTP_PORT
		}
		if src.Ftp.Port < 0 || src.Ftp.Port > 65535 {
			return invalid("port", "%d is out of range", src.Ftp.Port)
		}
		if src.Ftp.RemoteDir == "" {
			src.Ftp.RemoteDir = "/"
		}
		if !strings.HasPrefix(src.Ftp.RemoteDir, "/") {
			return invalid("remote_dir", "%q must be absolute", src.Ftp.RemoteDir)
		}
	default:
		return invalid("kind", "unknown source kind %q", src.Kind)
	}
	return nil
}

func (r *Registry) AddSource(ctx context.Context, src *model.ScanSource) error {
	if err := normalizeSource(src); err != nil {
		return err
	}
	err := r.sources.Create(ctx, src)
	if errors.Is(err, database.ErrAlreadyExists) {
		return invalid("name", "source %s already exists", src.Name)
	}
	if err != nil {
		return err
	}
	L.Info(fmt.Sprintf("Added source %s", src.String()))
	return nil
}

func (r *Registry) UpdateSource(ctx context.Context, src *model.ScanSource) error {
	if err := normalizeSource(src); err != nil {
		return err
	}
	return r.sources.Update(ctx, src)
}

func (r *Registry) SetSourceEnabled(ctx context.Context, name string, enabled bool) error {
	return r.sources.SetEnabled(ctx, name, enabled)
}

func (r *Registry) GetSource(ctx context.Context, name string) (*model.ScanSource, error) {
	return r.sources.GetByName(ctx, name)
}

func (r *Registry) ListSources(ctx context.Context, enabledOnly bool) ([]model.ScanSource, error) {
	return r.sources.List(ctx, enabledOnly)
}

// DeleteSource removes a source and its mapping. Records discovered from it
// block the deletion unless force is set, in which case they are tombstoned.
func (r *Registry) DeleteSource(ctx context.Context, name string, force bool) (int64, error) {
	refs, err := r.sources.Delete(ctx, name, force)
	if err != nil {
		if errors.Is(err, repository.ErrSourceInUse) {
			return refs, fmt.Errorf("source %s has %d file records, use force to tombstone them: %w", name, refs, err)
		}
		return refs, err
	}
	L.Info(fmt.Sprintf("Deleted source %s", name))
	return refs, nil
}

func (r *Registry) AddFileType(ctx context.Context, extension string, description string, enabled bool) (*model.FileTypeRule, error) {
	ext, err := model.NormalizeExtension(extension)
	if err != nil {
		return nil, invalid("extension", "%v", err)
	}
	rule := &model.FileTypeRule{
		Extension:   ext,
		Description: strings.TrimSpace(description),
		Enabled:     enabled,
	}
	err = r.fileTypes.Create(ctx, rule)
	if errors.Is(err, database.ErrAlreadyExists) {
		return nil, invalid("extension", "%s already exists", ext)
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func (r *Registry) SetFileTypeEnabled(ctx context.Context, extension string, enabled bool) error {
	ext, err := model.NormalizeExtension(extension)
	if err != nil {
		return invalid("extension", "%v", err)
	}
	return r.fileTypes.SetEnabled(ctx, ext, enabled)
}

func (r *Registry) UpdateFileType(ctx context.Context, extension string, description string) error {
	ext, err := model.NormalizeExtension(extension)
	if err != nil {
		return invalid("extension", "%v", err)
	}
	return r.fileTypes.UpdateDescription(ctx, ext, strings.TrimSpace(description))
}

func (r *Registry) RemoveFileType(ctx context.Context, extension string) error {
	ext, err := model.NormalizeExtension(extension)
	if err != nil {
		return invalid("extension", "%v", err)
	}
	return r.fileTypes.Delete(ctx, ext)
}

func (r *Registry) ListFileTypes(ctx context.Context, enabledOnly bool) ([]model.FileTypeRule, error) {
	return r.fileTypes.List(ctx, enabledOnly)
}

// SaveMappings validates the whole batch before writing any of it.
func (r *Registry) SaveMappings(ctx context.Context, mappings []model.KnowledgeBaseMapping) error {
	if len(mappings) == 0 {
		return invalid("mappings", "nothing to save")
	}
	seen := map[string]bool{}
	for i := range mappings {
		m := &mappings[i]
		m.ScanConfigName = strings.TrimSpace(m.ScanConfigName)
		m.KnowledgeBaseId = strings.TrimSpace(m.KnowledgeBaseId)
		if m.ScanConfigName == "" {
			return invalid("scan_config_name", "mapping %d has no source", i)
		}
		if m.KnowledgeBaseId == "" {
			return invalid("knowledge_base_id", "mapping for %s has no knowledge base", m.ScanConfigName)
		}
		if seen[m.ScanConfigName] {
			return invalid("scan_config_name", "%s is mapped more than once", m.ScanConfigName)
		}
		seen[m.ScanConfigName] = true
		_, err := r.sources.GetByName(ctx, m.ScanConfigName)
		if errors.Is(err, database.ErrDoesNotExist) {
			return invalid("scan_config_name", "unknown source %s", m.ScanConfigName)
		}
		if err != nil {
			return err
		}
	}
	err := r.mappings.SaveAll(ctx, mappings)
	switch {
	case errors.Is(err, database.ErrAlreadyExists):
		return invalid("scan_config_name", "%v", err)
	case errors.Is(err, database.ErrDoesNotExist):
		return invalid("mapping", "%v", err)
	case err != nil:
		return err
	}
	L.Info(fmt.Sprintf("Saved %d knowledge base mappings", len(mappings)))
	return nil
}

func (r *Registry) ListMappings(ctx context.Context) ([]model.KnowledgeBaseMapping, error) {
	return r.mappings.List(ctx)
}

// GetMappingForSource returns the mapping of a source, or ErrDoesNotExist
// when there is none or it is disabled.
func (r *Registry) GetMappingForSource(ctx context.Context, sourceName string) (*model.KnowledgeBaseMapping, error) {
	m, err := r.mappings.GetBySource(ctx, sourceName)
	if err != nil {
		return nil, err
	}
	if !m.Enabled {
		return nil, database.ErrDoesNotExist
	}
	return m, nil
}

func (r *Registry) DeleteMapping(ctx context.Context, id int64) error {
	return r.mappings.Delete(ctx, id)
}
