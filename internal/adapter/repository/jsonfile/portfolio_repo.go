package jsonfile

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/simaogato/dca-tracker/internal/domain"
)

// portfolioRepository implements domain.PortfolioRepository on a JSON file
type portfolioRepository struct {
	path     string
	versions int
	clock    func() time.Time
	log      zerolog.Logger
}

// NewPortfolioRepository creates a new file-backed portfolio repository.
// versions is the number of rotated backups kept (0 disables backups).
func NewPortfolioRepository(path string, versions int, log zerolog.Logger) domain.PortfolioRepository {
	return &portfolioRepository{
		path:     path,
		versions: versions,
		clock:    time.Now,
		log:      log.With().Str("component", "portfolio_store").Str("path", path).Logger(),
	}
}

// Load retrieves the persisted portfolio, or a fresh one when none exists
func (r *portfolioRepository) Load(ctx context.Context) (*domain.Portfolio, error) {
	if err := ctx.Err(); err != nil {
		return domain.NewPortfolio(r.clock()), err
	}

	var p domain.Portfolio
	err := readJSON(r.path, &p)
	if os.IsNotExist(err) {
		r.log.Info().Msg("No persisted portfolio, starting empty")
		return domain.NewPortfolio(r.clock()), nil
	}
	if err != nil {
		return r.replacement(), fmt.Errorf("%w: %v", domain.ErrCorruptState, err)
	}

	p.Normalize()
	if err := p.Validate(); err != nil {
		return r.replacement(), fmt.Errorf("%w: %s: %v", domain.ErrCorruptState, r.path, err)
	}

	return &p, nil
}

// Save overwrites the portfolio file after checking no other writer saved in between
func (r *portfolioRepository) Save(ctx context.Context, p *domain.Portfolio) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: nil portfolio", domain.ErrPersistence)
	}

	onDisk, err := r.persistedVersion()
	if err != nil {
		return err
	}
	if onDisk != p.Version {
		return fmt.Errorf("%w: loaded version %d, persisted version %d", domain.ErrVersionConflict, p.Version, onDisk)
	}

	doc := *p
	doc.Version = p.Version + 1
	if err := writeJSON(r.path, &doc, r.versions, r.log); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	p.Version = doc.Version
	r.log.Info().Int64("version", p.Version).Msg("Portfolio saved")
	return nil
}

// replacement is the fresh portfolio returned for unusable state. It carries
// the persisted version so that saving it overwrites the bad document.
func (r *portfolioRepository) replacement() *domain.Portfolio {
	p := domain.NewPortfolio(r.clock())
	p.Version, _ = r.persistedVersion()
	return p
}

// persistedVersion returns the version on disk: 0 when the file is missing
// or unreadable (a corrupt file may be overwritten).
func (r *portfolioRepository) persistedVersion() (int64, error) {
	var head struct {
		Version int64 `json:"version"`
	}
	err := readJSON(r.path, &head)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		r.log.Warn().Err(err).Msg("Persisted portfolio unreadable, it will be replaced")
		return 0, nil
	}
	return head.Version, nil
}
