package scorm

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PackageFilter narrows List. Empty fields match everything; a non-nil
// OrganizationIDs restricts results to those organizations.
type PackageFilter struct {
	OrganizationID  string
	CourseID        string
	OrganizationIDs []string
}

type PackageRepository interface {
	Create(ctx context.Context, p *Package) error
	GetByID(ctx context.Context, id string) (*Package, error)
	GetByIDAndOrg(ctx context.Context, id, organizationID string) (*Package, error)
	List(ctx context.Context, f PackageFilter) ([]*Package, error)
	UpdateStatus(ctx context.Context, id string, status PackageStatus) error
	Delete(ctx context.Context, id string) error
	StoragePaths(ctx context.Context) (map[string]bool, error)
}

type AttemptRepository interface {
	Create(ctx context.Context, a *Attempt) error
	GetByID(ctx context.Context, id string) (*Attempt, error)
	Update(ctx context.Context, a *Attempt) error
	ListByPackage(ctx context.Context, packageID string) ([]Attempt, error)
	ListByPackageAndUser(ctx context.Context, packageID, userID string) ([]Attempt, error)
}

type packageRepository struct {
	db *gorm.DB
}

func NewPackageRepository(db *gorm.DB) PackageRepository {
	return &packageRepository{db: db}
}

func (r *packageRepository) Create(ctx context.Context, p *Package) error {
	err := r.db.WithContext(ctx).Create(p).Error
	if isUniqueViolation(err) {
		return ErrPackageExists
	}
	return err
}

func (r *packageRepository) GetByID(ctx context.Context, id string) (*Package, error) {
	var p Package
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPackageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *packageRepository) GetByIDAndOrg(ctx context.Context, id, organizationID string) (*Package, error) {
	var p Package
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, organizationID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPackageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *packageRepository) List(ctx context.Context, f PackageFilter) ([]*Package, error) {
	q := r.db.WithContext(ctx).Model(&Package{})
	if f.OrganizationID != "" {
		q = q.Where("organization_id = ?", f.OrganizationID)
	}
	if f.CourseID != "" {
		q = q.Where("course_id = ?", f.CourseID)
	}
	if f.OrganizationIDs != nil {
		if len(f.OrganizationIDs) == 0 {
			return []*Package{}, nil
		}
		q = q.Where("organization_id IN ?", f.OrganizationIDs)
	}

	var out []*Package
	err := q.Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *packageRepository) UpdateStatus(ctx context.Context, id string, status PackageStatus) error {
	res := r.db.WithContext(ctx).Model(&Package{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPackageNotFound
	}
	return nil
}

func (r *packageRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Package{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPackageNotFound
	}
	return nil
}

// StoragePaths returns the prefix of every recorded package.
func (r *packageRepository) StoragePaths(ctx context.Context) (map[string]bool, error) {
	var paths []string
	if err := r.db.WithContext(ctx).Model(&Package{}).Pluck("storage_path", &paths).Error; err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(paths))
	for _, p := range paths {
		out[p] = true
	}
	return out, nil
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Create(ctx context.Context, a *Attempt) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *attemptRepository) GetByID(ctx context.Context, id string) (*Attempt, error) {
	var a Attempt
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *attemptRepository) Update(ctx context.Context, a *Attempt) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *attemptRepository) ListByPackage(ctx context.Context, packageID string) ([]Attempt, error) {
	var out []Attempt
	err := r.db.WithContext(ctx).
		Where("package_id = ?", packageID).
		Order("started_at ASC").
		Find(&out).Error
	return out, err
}

func (r *attemptRepository) ListByPackageAndUser(ctx context.Context, packageID, userID string) ([]Attempt, error) {
	var out []Attempt
	err := r.db.WithContext(ctx).
		Where("package_id = ? AND user_id = ?", packageID, userID).
		Order("started_at DESC").
		Find(&out).Error
	return out, err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
