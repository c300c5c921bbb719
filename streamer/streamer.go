// Package streamer loads sector archives from a source in the background and
// applies them to a cell grid at a paced rate.
//
// Fetching and decoding run concurrently. Grid mutations only happen in
// Update, which must be called from the goroutine owning the grid.
package streamer

import (
	"context"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/navgrid/cellgrid"
	"github.com/aukilabs/navgrid/sector"
	"github.com/aukilabs/navgrid/store"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Source provides sector archives.
type Source interface {
	List(ctx context.Context) ([]store.Entry, error)
	Get(ctx context.Context, id sector.Identity) ([]byte, error)
}

type Config struct {
	// The activation policy sectors are inserted with.
	Policy cellgrid.Policy

	// The maximum number of archives fetched and decoded at once.
	Workers int

	// The maximum number of sector insertions per second. Zero means
	// unlimited.
	InsertRate float64

	// The number of insertions allowed in a single burst.
	InsertBurst int
}

func DefaultConfig() Config {
	return Config{
		Policy:      cellgrid.PolicyActivate,
		Workers:     4,
		InsertBurst: 1,
	}
}

// Streamer queues decoded sectors and applies them to a grid.
type Streamer struct {
	grid    *cellgrid.Grid
	source  Source
	config  Config
	limiter *rate.Limiter

	mutex    sync.Mutex
	inserts  []*sector.Sector
	removals []sector.Identity
}

func New(grid *cellgrid.Grid, source Source, c Config) *Streamer {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.InsertBurst <= 0 {
		c.InsertBurst = 1
	}

	s := &Streamer{
		grid:   grid,
		source: source,
		config: c,
	}
	if c.InsertRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(c.InsertRate), c.InsertBurst)
	}
	return s
}

// Load fetches and decodes the sectors with the given identities, then queues
// them for insertion in the given order. Nothing is queued when one of them
// fails.
func (s *Streamer) Load(ctx context.Context, ids ...sector.Identity) error {
	sectors := make([]*sector.Sector, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			archive, err := s.source.Get(ctx, id)
			if err != nil {
				return errors.New("fetching sector failed").
					WithTag("sector", id.String()).
					Wrap(err)
			}

			sec, err := sector.DecodeArchive(archive)
			if err != nil {
				return errors.New("decoding sector failed").
					WithTag("sector", id.String()).
					Wrap(err)
			}

			sectors[i] = sec
			instrumentSector("decoded")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		instrumentSector("failed")
		return err
	}

	s.mutex.Lock()
	s.inserts = append(s.inserts, sectors...)
	pending := len(s.inserts)
	s.mutex.Unlock()

	instrumentPending(pending)
	return nil
}

// LoadAll queues every sector of the source. Entries of another kind than the
// grid one are skipped.
func (s *Streamer) LoadAll(ctx context.Context) error {
	entries, err := s.source.List(ctx)
	if err != nil {
		return errors.New("listing sectors failed").Wrap(err)
	}

	kind := s.grid.Config().Kind.String()
	ids := make([]sector.Identity, 0, len(entries))
	for _, e := range entries {
		if e.Kind != "" && e.Kind != kind {
			continue
		}
		ids = append(ids, e.Identity)
	}
	return s.Load(ctx, ids...)
}

// Unload queues the removal of the sectors with the given identities.
func (s *Streamer) Unload(ids ...sector.Identity) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.removals = append(s.removals, ids...)
}

// Pending returns the number of queued insertions and removals.
func (s *Streamer) Pending() (inserts, removals int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.inserts), len(s.removals)
}

// Update applies the queued removals, then as many queued insertions as the
// insert rate allows, in queue order. It returns the number of sectors
// inserted and removed. Failing sectors are logged and dropped.
func (s *Streamer) Update(ctx context.Context) (inserted, removed int) {
	s.mutex.Lock()
	removals := s.removals
	s.removals = nil
	s.mutex.Unlock()

	for _, id := range removals {
		if ctx.Err() != nil {
			break
		}

		ref, err := s.grid.Sector(id)
		if err == nil {
			err = s.grid.RemoveSector(ref)
		}
		if err != nil {
			logs.Warn(errors.New("removing sector failed").
				WithTag("sector", id.String()).
				Wrap(err))
			instrumentSector("failed")
			continue
		}

		removed++
		instrumentSector("removed")
	}

	for ctx.Err() == nil {
		if s.limiter != nil && !s.limiter.Allow() {
			break
		}

		sec := s.next()
		if sec == nil {
			break
		}

		if _, err := s.grid.InsertSector(sec, s.config.Policy); err != nil {
			logs.Warn(errors.New("inserting sector failed").
				WithTag("sector", sec.Identity.String()).
				Wrap(err))
			instrumentSector("failed")
			continue
		}

		inserted++
		instrumentSector("inserted")
	}

	if inserted != 0 || removed != 0 {
		logs.WithTag("inserted", inserted).
			WithTag("removed", removed).
			Debug("sectors streamed")
	}
	return inserted, removed
}

// Run calls Update at the pace of the insert rate until ctx is done. lock
// guards the grid against the application queries.
func (s *Streamer) Run(ctx context.Context, lock sync.Locker) {
	limit := rate.Inf
	if s.limiter != nil {
		limit = s.limiter.Limit()
	}
	tick := rate.NewLimiter(limit, 1)
	if limit == rate.Inf {
		tick = rate.NewLimiter(rate.Limit(10), 1)
	}

	for {
		if err := tick.Wait(ctx); err != nil {
			return
		}

		lock.Lock()
		s.Update(ctx)
		lock.Unlock()
	}
}

func (s *Streamer) next() *sector.Sector {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(s.inserts) == 0 {
		return nil
	}
	sec := s.inserts[0]
	s.inserts[0] = nil
	s.inserts = s.inserts[1:]
	instrumentPending(len(s.inserts))
	return sec
}
