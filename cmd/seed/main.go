package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/iwhizerd/Movie-recomendator/internal/catalog"
	"github.com/iwhizerd/Movie-recomendator/internal/config"
	"github.com/iwhizerd/Movie-recomendator/internal/models"
	"github.com/iwhizerd/Movie-recomendator/internal/seeder"
	"github.com/iwhizerd/Movie-recomendator/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var (
	dryRun     = flag.Bool("dry-run", false, "Scrape but don't write the enrichment file")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	pageLimit  = flag.Int("limit", 0, "Limit number of movies to scrape (0 = all)")
	concurrent = flag.Int("concurrent", 2, "Number of concurrent requests")
	delay      = flag.Duration("delay", time.Second, "Delay between requests")
	refresh    = flag.Bool("refresh", false, "Scrape movies that already have an intro")
	maxLength  = flag.Int("max-length", 1200, "Maximum intro length in characters (0 = no limit)")
)

const userAgent = "MovieRecommender-Seeder/1.0 (+https://github.com/iwhizerd/Movie-recomendator)"

// ContentSeeder scrapes Wikipedia intros for catalog movies.
type ContentSeeder struct {
	collector *colly.Collector
	processor *seeder.ContentProcessor
	logger    *logrus.Logger

	mu      sync.Mutex
	results map[int]seeder.Enrichment
	misses  []int
}

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	logger := utils.GetLogger()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	logger.Info("Starting Wikipedia intro seeder...")

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if cfg.Data.EnrichmentPath == "" {
		logger.Fatal("data.enrichment_path must be set")
	}

	cat, err := catalog.Load(catalog.Paths{
		MoviesPath:     cfg.Data.MoviesPath,
		RatingsPath:    cfg.Data.RatingsPath,
		EnrichmentPath: cfg.Data.EnrichmentPath,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load catalog")
	}

	var todo []models.Movie
	for _, m := range cat.Movies() {
		if m.WikipediaIntro != "" && !*refresh {
			continue
		}
		todo = append(todo, m)
		if *pageLimit > 0 && len(todo) >= *pageLimit {
			logger.WithField("limit", *pageLimit).Info("Limited movies to scrape")
			break
		}
	}

	cs := NewContentSeeder(logger)
	cs.Seed(todo)

	rows := seeder.Merge(cat.Movies(), cs.results)

	if *dryRun {
		for _, m := range todo {
			if r, ok := cs.results[m.ID]; ok {
				logger.WithFields(logrus.Fields{
					"movie_id": m.ID,
					"title":    m.Title,
					"link":     r.Link,
					"words":    seeder.CountWords(r.Intro),
				}).Info("DRY RUN: Would write intro")
			}
		}
		return
	}

	if err := seeder.WriteEnrichmentFile(cfg.Data.EnrichmentPath, rows); err != nil {
		logger.WithError(err).Fatal("Failed to write enrichment file")
	}

	logger.WithFields(logrus.Fields{
		"path":    cfg.Data.EnrichmentPath,
		"rows":    len(rows),
		"scraped": len(cs.results),
		"missed":  len(cs.misses),
	}).Info("Enrichment completed successfully!")
}

func NewContentSeeder(logger *logrus.Logger) *ContentSeeder {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowedDomains("en.wikipedia.org"),
		colly.Async(true),
	)

	c.Limit(&colly.LimitRule{
		DomainGlob:  "*wikipedia.org",
		Parallelism: *concurrent,
		Delay:       *delay,
	})
	c.SetRequestTimeout(30 * time.Second)

	return &ContentSeeder{
		collector: c,
		processor: seeder.NewContentProcessor(*maxLength),
		logger:    logger,
		results:   make(map[int]seeder.Enrichment),
	}
}

// Seed tries each movie's candidate articles in order until one yields an
// intro, then waits for every request to finish.
func (cs *ContentSeeder) Seed(movies []models.Movie) {
	cs.logger.WithField("total_movies", len(movies)).Info("Scraping Wikipedia intros")

	cs.collector.OnHTML("#mw-content-text", func(e *colly.HTMLElement) {
		movieID := e.Request.Ctx.GetAny("movie_id").(int)
		intro := cs.processor.Intro(e.DOM)
		if intro == "" {
			cs.next(e.Request.Ctx)
			return
		}

		cs.mu.Lock()
		cs.results[movieID] = seeder.Enrichment{
			MovieID: movieID,
			Intro:   intro,
			Link:    e.Request.URL.String(),
		}
		done := len(cs.results)
		cs.mu.Unlock()

		cs.logger.WithFields(logrus.Fields{
			"movie_id": movieID,
			"url":      e.Request.URL.String(),
			"progress": fmt.Sprintf("%d/%d", done, len(movies)),
		}).Debug("Intro extracted")
	})

	cs.collector.OnError(func(r *colly.Response, err error) {
		if r.StatusCode != http.StatusNotFound {
			cs.logger.WithError(err).WithField("url", r.Request.URL.String()).Warn("Request failed")
		}
		cs.next(r.Ctx)
	})

	for _, m := range movies {
		ctx := colly.NewContext()
		ctx.Put("movie_id", m.ID)
		ctx.Put("title", m.Title)
		ctx.Put("candidates", seeder.CandidateURLs(m.Title, m.Year))
		ctx.Put("attempt", -1)
		cs.next(ctx)
	}

	cs.collector.Wait()

	cs.logger.WithFields(logrus.Fields{
		"scraped": len(cs.results),
		"missed":  len(cs.misses),
	}).Info("Scraping completed")
}

// next visits the movie's following candidate URL, or records a miss.
func (cs *ContentSeeder) next(ctx *colly.Context) {
	movieID := ctx.GetAny("movie_id").(int)
	candidates, _ := ctx.GetAny("candidates").([]string)
	attempt := ctx.GetAny("attempt").(int) + 1

	if attempt >= len(candidates) {
		cs.mu.Lock()
		cs.misses = append(cs.misses, movieID)
		cs.mu.Unlock()
		cs.logger.WithFields(logrus.Fields{
			"movie_id": movieID,
			"title":    ctx.Get("title"),
		}).Warn("No Wikipedia intro found")
		return
	}

	ctx.Put("attempt", attempt)
	if err := cs.collector.Request(http.MethodGet, candidates[attempt], nil, ctx, nil); err != nil {
		cs.logger.WithError(err).WithField("url", candidates[attempt]).Debug("Failed to queue request")
		cs.next(ctx)
	}
}
