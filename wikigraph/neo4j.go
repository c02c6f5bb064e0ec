package wikigraph

import (
	"context"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/spanex/spanex/internal/logging"
	"github.com/spanex/spanex/pkg/errors"
)

// Neo4jConfig holds the connection settings for a neo4j-backed graph.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`

	MaxConnectionPoolSize int           `mapstructure:"max_connection_pool_size"`
	MaxConnectionLifetime time.Duration `mapstructure:"max_connection_lifetime"`
}

// Neo4jGraph is a Graph backed by a neo4j database holding (:Page) nodes
// with a lowercase "title_lower" property and (:Page)-[:IN_CATEGORY]->
// (:Category) edges.
type Neo4jGraph struct {
	driver   neo4j.DriverWithContext
	database string
	log      logging.Logger
}

// NewNeo4jGraph connects to the database and verifies connectivity before
// returning. Close releases the underlying driver.
func NewNeo4jGraph(ctx context.Context, cfg Neo4jConfig, log logging.Logger) (*Neo4jGraph, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""), func(c *neo4j.Config) {
		if cfg.MaxConnectionPoolSize > 0 {
			c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
		}
		if cfg.MaxConnectionLifetime > 0 {
			c.MaxConnectionLifetime = cfg.MaxConnectionLifetime
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeGraphUnavailable, "failed to create neo4j driver")
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CodeGraphUnavailable, "failed to connect to neo4j")
	}

	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}
	log.Info("connected to knowledge graph",
		logging.String("uri", cfg.URI),
		logging.String("database", database),
	)
	return &Neo4jGraph{driver: driver, database: database, log: log}, nil
}

func (g *Neo4jGraph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

func (g *Neo4jGraph) read(ctx context.Context, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: g.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, work)
	if err != nil {
		g.log.Error("knowledge graph read failed", logging.Err(err))
		return nil, errors.Wrap(err, errors.CodeGraphUnavailable, "graph read failed")
	}
	return out, nil
}

func (g *Neo4jGraph) Titles(ctx context.Context) ([]string, error) {
	out, err := g.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, "MATCH (p:Page) RETURN p.title AS title ORDER BY title", nil)
		if err != nil {
			return nil, err
		}
		var titles []string
		for result.Next(ctx) {
			if t, ok := result.Record().Get("title"); ok {
				if s, ok := t.(string); ok {
					titles = append(titles, s)
				}
			}
		}
		return titles, result.Err()
	})
	if err != nil {
		return nil, err
	}
	return out.([]string), nil
}

func (g *Neo4jGraph) PageByTitle(ctx context.Context, title string) (*Page, error) {
	out, err := g.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MATCH (p:Page {title_lower: $title})
			OPTIONAL MATCH (p)-[:IN_CATEGORY]->(c:Category)
			RETURN p.title AS title, collect(c.name) AS categories
		`, map[string]any{"title": strings.ToLower(title)})
		if err != nil {
			return nil, err
		}
		if !result.Next(ctx) {
			if err := result.Err(); err != nil {
				return nil, err
			}
			return nil, nil
		}
		rec := result.Record()
		page := &Page{}
		if t, ok := rec.Get("title"); ok {
			page.Title, _ = t.(string)
		}
		if cs, ok := rec.Get("categories"); ok {
			if list, ok := cs.([]any); ok {
				for _, c := range list {
					if s, ok := c.(string); ok {
						page.Categories = append(page.Categories, s)
					}
				}
			}
		}
		return page, nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil || out.(*Page) == nil {
		return nil, errors.New(errors.CodePageNotFound, "page not found").WithDetail(title)
	}
	return out.(*Page), nil
}

func (g *Neo4jGraph) Categories(ctx context.Context, title string) ([]string, error) {
	page, err := g.PageByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	return page.Categories, nil
}
