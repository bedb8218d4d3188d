package scorm

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"scormhub/internal/pkg/archive"
	"scormhub/internal/pkg/filetype"
	"scormhub/internal/pkg/session"
	"scormhub/internal/pkg/storage"
	"scormhub/internal/pkg/validator"
)

const (
	MaxPackageSize     = 100 << 20 // 100 MB
	DefaultConcurrency = 8
)

// Options tune the uploader. Zero values take the defaults.
type Options struct {
	MaxUploadBytes int64
	Limits         archive.Limits
	Concurrency    int
}

func (o Options) withDefaults() Options {
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = MaxPackageSize
	}
	if o.Limits.MaxEntries <= 0 {
		o.Limits.MaxEntries = archive.DefaultMaxEntries
	}
	if o.Limits.MaxUncompressedBytes == 0 {
		o.Limits.MaxUncompressedBytes = archive.DefaultMaxUncompressedBytes
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	return o
}

// UploadInput is one uploaded zip. File must stay readable for the duration
// of Upload.
type UploadInput struct {
	OrganizationID string
	CourseID       string
	FileName       string
	Size           int64
	File           io.ReaderAt
}

// Service ingests packages and manages their lifecycle.
// Ingest: size check -> security -> manifest -> structure -> files -> record.
type Service struct {
	repo    PackageRepository
	store   storage.ObjectStore
	cleaner *Cleaner
	opts    Options
	log     zerolog.Logger
	newID   func() string
	now     func() time.Time
}

func NewService(repo PackageRepository, store storage.ObjectStore, cleaner *Cleaner, opts Options, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		store:   store,
		cleaner: cleaner,
		opts:    opts.withDefaults(),
		log:     log.With().Str("component", "scorm").Logger(),
		newID:   func() string { return uuid.New().String() },
		now:     time.Now,
	}
}

// MaxUploadBytes is the effective per-package size ceiling.
func (s *Service) MaxUploadBytes() int64 { return s.opts.MaxUploadBytes }

// Upload validates the archive in full before the first storage write, then
// stores every regular entry under {organization}/{package}/ and records the
// package. Files written before a later failure are handed to the cleaner.
func (s *Service) Upload(ctx context.Context, user session.User, in UploadInput) (*Package, error) {
	if !user.HasRole(session.RoleAdmin, session.RoleInstructor) {
		return nil, ErrForbidden
	}
	// both ids become storage key segments
	if !validator.IsIdentifier(in.OrganizationID) || !validator.IsIdentifier(in.CourseID) {
		return nil, ErrInvalidID
	}
	if !user.MemberOf(in.OrganizationID) {
		return nil, ErrNotMember
	}
	if in.Size <= 0 {
		return nil, ErrEmptyFile
	}
	if in.Size > s.opts.MaxUploadBytes {
		return nil, fmt.Errorf("%w: limit is %s", ErrFileTooLarge, HumanSize(s.opts.MaxUploadBytes))
	}

	zr, err := archive.Open(in.File, in.Size)
	if err != nil {
		return nil, err
	}
	if err := archive.CheckSecurity(zr, s.opts.Limits); err != nil {
		return nil, err
	}
	manifest, err := ReadManifest(zr)
	if err != nil {
		return nil, err
	}
	if err := ValidateStructure(zr, manifest); err != nil {
		return nil, err
	}

	id := s.newID()
	prefix := storage.PackagePrefix(in.OrganizationID, id)
	log := s.log.With().Str("package_id", id).Str("organization_id", in.OrganizationID).Logger()

	count, err := s.putFiles(ctx, zr, prefix)
	if err != nil {
		s.cleaner.Enqueue(prefix, "file upload failed")
		return nil, fmt.Errorf("failed to store package files: %w", err)
	}

	now := s.now()
	pkg := &Package{
		ID:             id,
		OrganizationID: in.OrganizationID,
		CourseID:       in.CourseID,
		Title:          packageTitle(manifest.Title, in.FileName),
		Description:    manifest.Description,
		Version:        manifest.Version,
		EntryPoint:     manifest.EntryPoint,
		StoragePath:    prefix,
		FileSize:       in.Size,
		FileCount:      count,
		Status:         PackageActive,
		CreatedBy:      user.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	pkg.Manifest = datatypes.NewJSONType(manifest)

	if err := s.repo.Create(ctx, pkg); err != nil {
		s.cleaner.Enqueue(prefix, "metadata write failed")
		return nil, fmt.Errorf("failed to save package record: %w", err)
	}

	log.Info().Int("files", count).Int64("bytes", in.Size).Str("entry_point", pkg.EntryPoint).
		Msg("package uploaded")
	return pkg, nil
}

func (s *Service) putFiles(ctx context.Context, zr *archive.Reader, prefix string) (int, error) {
	files := zr.Regular()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for _, f := range files {
		f := f
		g.Go(func() error {
			rc, err := f.Open()
			if err != nil {
				return fmt.Errorf("open %s: %w", f.Name, err)
			}
			defer rc.Close()
			key := storage.Join(prefix, f.Name)
			return s.store.Put(gctx, key, rc, int64(f.Size), filetype.ContentType(f.Name))
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(files), nil
}

// GetByID returns a package the user's organizations can see. Packages of
// other organizations are reported as not found.
func (s *Service) GetByID(ctx context.Context, user session.User, id string) (*Package, error) {
	pkg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.MemberOf(pkg.OrganizationID) {
		return nil, ErrPackageNotFound
	}
	return pkg, nil
}

// List returns packages visible to user, newest first.
func (s *Service) List(ctx context.Context, user session.User, f PackageFilter) ([]*Package, error) {
	if !user.IsAdmin() {
		if f.OrganizationID != "" && !user.MemberOf(f.OrganizationID) {
			return nil, ErrNotMember
		}
		f.OrganizationIDs = append([]string{}, user.OrgIDs...)
	}
	pkgs, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if user.HasRole(session.RoleAdmin, session.RoleInstructor) {
		return pkgs, nil
	}
	// learners only see launchable packages
	out := pkgs[:0]
	for _, p := range pkgs {
		if p.Status == PackageActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) UpdateStatus(ctx context.Context, user session.User, id string, status PackageStatus) (*Package, error) {
	switch status {
	case PackageActive, PackageInactive, PackageProcessing:
	default:
		return nil, ErrInvalidStatus
	}
	if _, err := s.GetByID(ctx, user, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Delete removes the package record and then its stored files. A failed file
// removal is queued on the cleaner; attempts are kept for reporting.
func (s *Service) Delete(ctx context.Context, user session.User, id string) error {
	pkg, err := s.GetByID(ctx, user, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, pkg.ID); err != nil {
		return err
	}

	n, err := s.store.DeletePrefix(ctx, pkg.StoragePath)
	if err != nil {
		s.log.Warn().Err(err).Str("package_id", pkg.ID).Msg("package files not removed")
		s.cleaner.Enqueue(pkg.StoragePath, "package deleted")
		return nil
	}
	s.log.Info().Str("package_id", pkg.ID).Int("files", n).Str("deleted_by", user.ID).Msg("package deleted")
	return nil
}

func packageTitle(manifestTitle, fileName string) string {
	if t := strings.TrimSpace(manifestTitle); t != "" {
		return t
	}
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	if base != "" && base != "." && base != "/" {
		return base
	}
	return "Untitled package"
}

// HumanSize renders a byte count with a binary unit, e.g. "100 MB".
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	units := []string{"KB", "MB", "GB", "TB"}
	v := float64(n) / unit
	i := 0
	for v >= unit && i < len(units)-1 {
		v /= unit
		i++
	}
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d %s", int64(v), units[i])
	}
	return fmt.Sprintf("%.1f %s", v, units[i])
}
