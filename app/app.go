package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ibdsync/ibdsync/infrastructure/config"
	"github.com/ibdsync/ibdsync/infrastructure/logger"
	"github.com/ibdsync/ibdsync/infrastructure/os/signal"
	"github.com/ibdsync/ibdsync/util/panics"
	"github.com/ibdsync/ibdsync/version"
)

const leveldbDirname = "chaindb"

type ibdsyncApp struct {
	cfg *config.Config
}

// StartApp loads the configuration, runs a single initial block download
// session and returns once it ends. A nil error means the session
// completed.
func StartApp() error {
	// Load configuration and parse command line. This function also
	// initializes logging and configures it accordingly.
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	err = logger.InitLog(cfg.LogFile(), cfg.ErrLogFile())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	defer logger.BackendLog.Close()
	defer panics.HandlePanic(log, "MAIN", nil)

	app := &ibdsyncApp{cfg: cfg}
	return app.main()
}

func (app *ibdsyncApp) main() error {
	log.Infof("Version %s", version.Version())
	log.Infof("Syncing %d headers on %s from %s", app.cfg.TargetHeaders, app.cfg.NetParams().Name,
		app.cfg.PeerAddress())

	ctx, cancel := signal.InterruptContext(context.Background())
	defer cancel()

	session, err := newSession(app.cfg)
	if err != nil {
		log.Errorf("Failed to set up the sync session: %+v", err)
		return err
	}
	defer session.close()

	err = session.run(ctx)
	if err != nil {
		log.Errorf("Initial block download failed: %+v", err)
		return err
	}
	return nil
}

func databasePath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, leveldbDirname)
}
