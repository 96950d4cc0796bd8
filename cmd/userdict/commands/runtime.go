package commands

import (
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/japaniel/userdict/pkg/config"
	"github.com/japaniel/userdict/pkg/db"
	"github.com/japaniel/userdict/pkg/dictionary"
	"github.com/japaniel/userdict/pkg/speller"
)

// runtime is everything a command needs once config is loaded.
type runtime struct {
	cfg    *config.Config
	log    *log.Logger
	conn   *sql.DB
	svc    *dictionary.Service
	locale db.Locale
}

// loadConfig reads the config file and applies flag overrides.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.dbPath != "" {
		cfg.Store.Path = g.dbPath
	}
	if g.locale != "" {
		cfg.Locale = g.locale
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	return cfg, nil
}

// open loads config, opens the database and builds the dictionary service.
func (g *globalFlags) open() (*runtime, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	l := cfg.Log.NewLogger("userdict")

	conn, err := db.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.Store.Path, err)
	}
	l.Debug("database opened", "path", cfg.Store.Path)

	match, _ := dictionary.ParseMatch(cfg.Suggest.Match)
	svc := dictionary.NewService(conn,
		dictionary.WithLogger(l.WithPrefix("dictionary")),
		dictionary.WithMatch(match),
		dictionary.WithLimit(cfg.Suggest.DictionaryLimit))

	return &runtime{
		cfg:    cfg,
		log:    l,
		conn:   conn,
		svc:    svc,
		locale: db.Locale(cfg.Locale),
	}, nil
}

func (rt *runtime) Close() error {
	return rt.conn.Close()
}

// spellers starts loading every configured speller in the background.
func (rt *runtime) spellers() *speller.Registry {
	reg := speller.NewRegistry()
	limit := rt.cfg.Suggest.SpellerLimit
	for _, sc := range rt.cfg.Spellers {
		sc := sc
		reg.LoadAsync(db.Locale(sc.Locale), func() (speller.Speller, error) {
			switch sc.Format {
			case config.FormatJMdict:
				return speller.LoadJMdictFile(sc.Path, limit*2)
			default:
				return speller.LoadWordListFile(sc.Path, limit*2)
			}
		}, rt.log.WithPrefix("speller"))
	}
	return reg
}
