// Package seeder fills a query database with plausible fake traffic for
// demos and local development.
package seeder

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

const batchSize = 500

// Inserter stores generated rows
type Inserter interface {
	InsertQueries(ctx context.Context, rows []models.Query) (int, error)
}

type Options struct {
	Count     int
	Spread    time.Duration // rows are spread backwards from now over this window
	Clients   int
	Domains   int
	BlockRate float64
	Seed      int64 // zero picks a random seed
}

func DefaultOptions() Options {
	return Options{
		Count:     1000,
		Spread:    24 * time.Hour,
		Clients:   8,
		Domains:   40,
		BlockRate: 0.15,
	}
}

// Generator produces rows from a fixed pool of clients and domains, so the
// top lists have a realistic long tail
type Generator struct {
	opts    Options
	faker   *gofakeit.Faker
	rng     *rand.Rand
	clients []string
	domains []string
}

func NewGenerator(opts Options) *Generator {
	def := DefaultOptions()
	if opts.Clients <= 0 {
		opts.Clients = def.Clients
	}
	if opts.Domains <= 0 {
		opts.Domains = def.Domains
	}
	if opts.Spread <= 0 {
		opts.Spread = def.Spread
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}

	g := &Generator{
		opts:  opts,
		faker: gofakeit.New(opts.Seed),
		rng:   rand.New(rand.NewSource(opts.Seed)),
	}
	for i := 0; i < opts.Clients; i++ {
		g.clients = append(g.clients, fmt.Sprintf("192.168.1.%d", 10+i))
	}
	seen := map[string]bool{}
	for len(g.domains) < opts.Domains {
		d := g.faker.DomainName()
		if seen[d] {
			continue
		}
		seen[d] = true
		g.domains = append(g.domains, d)
	}
	return g
}

// Generate returns Count rows ending at now, oldest first
func (g *Generator) Generate(now time.Time) []models.Query {
	n := g.opts.Count
	rows := make([]models.Query, 0, n)
	if n <= 0 {
		return rows
	}

	interval := float64(g.opts.Spread) / float64(n)
	for i := 0; i < n; i++ {
		// jitter of up to 40% of the interval either way
		offset := time.Duration(float64(i)*interval + (g.rng.Float64()*2-1)*interval*0.4)
		if offset < 0 {
			offset = 0
		}
		if offset > g.opts.Spread {
			offset = g.opts.Spread
		}
		rows = append(rows, models.Query{
			Timestamp: now.Add(-(g.opts.Spread - offset)).Truncate(time.Second),
			Domain:    g.pick(g.domains),
			Client:    g.pick(g.clients),
			Status:    g.status(),
		})
	}
	return rows
}

// pick favours the front of the pool
func (g *Generator) pick(pool []string) string {
	i := int(float64(len(pool)) * g.rng.Float64() * g.rng.Float64())
	return pool[i]
}

func (g *Generator) status() string {
	if g.rng.Float64() < g.opts.BlockRate {
		if g.rng.Float64() < 0.1 {
			return "blacklisted"
		}
		return "blocked"
	}
	return g.faker.RandomString([]string{"forwarded", "forwarded", "cached"})
}

// Seed generates rows and inserts them in batches. Rows that collide with
// existing ones are skipped, so the count returned may be lower than
// opts.Count.
func Seed(ctx context.Context, store Inserter, opts Options, now time.Time) (int, error) {
	rows := NewGenerator(opts).Generate(now)
	inserted := 0
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		n, err := store.InsertQueries(ctx, rows[start:end])
		if err != nil {
			return inserted, fmt.Errorf("failed to insert batch: %w", err)
		}
		inserted += n
	}
	return inserted, nil
}
