package main

import (
	"context"
	"embed"
	"flag"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/logger"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"
	wruntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/MJE43/dnd-master-desktop/bindings"
	"github.com/MJE43/dnd-master-desktop/internal/api"
	"github.com/MJE43/dnd-master-desktop/internal/appstore"
	"github.com/MJE43/dnd-master-desktop/internal/backup"
	"github.com/MJE43/dnd-master-desktop/internal/config"
	"github.com/MJE43/dnd-master-desktop/internal/kvstore"
	"github.com/MJE43/dnd-master-desktop/internal/logging"
	"github.com/MJE43/dnd-master-desktop/internal/secret"
)

//go:embed all:frontend/dist
var assets embed.FS

const repoURL = "https://github.com/MJE43/dnd-master-desktop"

var (
	appCtx   context.Context
	appCtxMu sync.RWMutex
)

func buildWindowsOptions(log logrus.FieldLogger) *windows.Options {
	return &windows.Options{
		BackdropType: windows.Mica,
		Theme:        windows.SystemDefault,
		CustomTheme: &windows.ThemeSettings{
			DarkModeTitleBar:   windows.RGB(24, 20, 18),
			DarkModeTitleText:  windows.RGB(232, 222, 206),
			DarkModeBorder:     windows.RGB(68, 56, 44),
			LightModeTitleBar:  windows.RGB(246, 240, 228),
			LightModeTitleText: windows.RGB(40, 30, 22),
			LightModeBorder:    windows.RGB(214, 200, 178),
		},
		WindowClassName: "DnDMasterWindow",
		OnSuspend:       func() { log.Debug("entering low power mode") },
		OnResume:        func() { log.Debug("resuming from low power mode") },
	}
}

func buildMacOptions() *mac.Options {
	icon, _ := assets.ReadFile("frontend/dist/assets/logo.png")
	return &mac.Options{
		TitleBar: &mac.TitleBar{HideToolbarSeparator: true},
		About: &mac.AboutInfo{
			Title:   "D&D Master",
			Message: "Maps, characters, bestiary and encounters for your table.\n\nAll data stays on this computer.",
			Icon:    icon,
		},
	}
}

func buildLinuxOptions() *linux.Options {
	icon, _ := assets.ReadFile("frontend/dist/assets/logo.png")
	return &linux.Options{
		Icon:             icon,
		WebviewGpuPolicy: linux.WebviewGpuPolicyAlways,
		ProgramName:      "dnd-master",
	}
}

func main() {
	envFile := flag.String("env", ".env", "optional .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.LogLevel)
	log.WithField("go", runtime.Version()).Info("starting D&D Master")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.WithError(err).Fatal("create data dir")
	}

	kv, err := kvstore.New(cfg.DBPath())
	if err != nil {
		log.WithError(err).Fatal("open storage")
	}

	store := appstore.New(kv, appstore.WithKey(cfg.StorageKey), appstore.WithLogger(log))
	log.WithFields(logrus.Fields{"db": cfg.DBPath(), "key": store.Key()}).Info("document storage opened")
	app := bindings.New(store, bindings.WithLogger(log), bindings.WithSeedBestiary(cfg.SeedBestiary))

	var server *api.Server
	if cfg.HTTPEnabled {
		secrets := secret.NewKeyringStore(cfg.KeyringService, cfg.SecretsFallbackPath())
		token, err := secrets.ResolveToken(cfg.APIToken)
		if err != nil {
			log.WithError(err).Warn("api token unavailable; loopback api disabled")
		} else {
			server = api.New(store, api.Options{Port: cfg.HTTPPort, Token: token, Logger: log, DB: kv})
		}
	}

	var scheduler *backup.Scheduler
	if cfg.BackupSchedule != "" {
		scheduler, err = backup.NewScheduler(store, cfg.BackupDir(), cfg.BackupSchedule, cfg.BackupKeep, log)
		if err != nil {
			log.WithError(err).Warn("scheduled backups disabled")
		}
	}

	startup := func(ctx context.Context) {
		setAppContext(ctx)
		app.Startup(ctx)

		if server != nil {
			if err := server.Start(); err != nil {
				log.WithError(err).Error("loopback api failed to start")
			} else {
				app.SetAPIInfo(bindings.APIInfo{Enabled: true, URL: server.URL(), Token: server.Token()})
			}
		}
		if scheduler != nil {
			scheduler.Start()
		}
	}

	beforeClose := func(ctx context.Context) (prevent bool) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if scheduler != nil {
			if err := scheduler.Stop(shutdownCtx); err != nil {
				log.WithError(err).Warn("backup scheduler stop")
			}
		}
		if server != nil {
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Warn("api shutdown")
			}
		}
		app.Shutdown()
		if err := kv.Close(); err != nil {
			log.WithError(err).Warn("close storage")
		}
		setAppContext(nil)
		log.Info("application is closing")
		return false
	}

	if err := wails.Run(&options.App{
		Title:            "D&D Master",
		Width:            1280,
		Height:           800,
		MinWidth:         1024,
		MinHeight:        700,
		BackgroundColour: &options.RGBA{R: 24, G: 20, B: 18, A: 255},

		AssetServer: &assetserver.Options{Assets: assets},

		OnStartup:     startup,
		OnBeforeClose: beforeClose,

		Menu: buildAppMenu(cfg, log),
		Bind: []interface{}{app},

		LogLevel:           logger.INFO,
		LogLevelProduction: logger.ERROR,

		EnableDefaultContextMenu: false,
		ErrorFormatter: func(err error) any {
			if err == nil {
				return nil
			}
			return err.Error()
		},

		SingleInstanceLock: &options.SingleInstanceLock{
			UniqueId: "6b0f1f7e-3c55-4d0a-9d8e-dnd-master-desktop",
			OnSecondInstanceLaunch: func(data options.SecondInstanceData) {
				log.WithField("args", data.Args).Info("second instance launch prevented")
			},
		},

		DragAndDrop: &options.DragAndDrop{DisableWebViewDrop: true},

		Windows: buildWindowsOptions(log),
		Mac:     buildMacOptions(),
		Linux:   buildLinuxOptions(),
	}); err != nil {
		log.WithError(err).Fatal("run wails app")
	}
}

func buildAppMenu(cfg config.Config, log logrus.FieldLogger) *menu.Menu {
	rootMenu := menu.NewMenu()

	if runtime.GOOS == "darwin" {
		if appMenu := menu.AppMenu(); appMenu != nil {
			rootMenu.Append(appMenu)
		}
	}

	fileMenu := menu.NewMenu()
	fileMenu.AddText("Open Data Directory", keys.CmdOrCtrl("o"), func(_ *menu.CallbackData) {
		withAppContext(log, func(ctx context.Context) {
			openPathInExplorer(ctx, log, cfg.DataDir)
		})
	})
	fileMenu.AddText("Open Backups Directory", nil, func(_ *menu.CallbackData) {
		withAppContext(log, func(ctx context.Context) {
			openPathInExplorer(ctx, log, cfg.BackupDir())
		})
	})
	fileMenu.AddSeparator()
	fileMenu.AddText("Quit", keys.CmdOrCtrl("q"), func(_ *menu.CallbackData) {
		withAppContext(log, wruntime.Quit)
	})
	rootMenu.Append(menu.SubMenu("File", fileMenu))

	viewMenu := menu.NewMenu()
	viewMenu.AddText("Reload Frontend", keys.CmdOrCtrl("r"), func(_ *menu.CallbackData) {
		withAppContext(log, wruntime.WindowReloadApp)
	})
	viewMenu.AddText("Toggle Fullscreen", keys.Combo("f", keys.CmdOrCtrlKey, keys.ShiftKey), func(_ *menu.CallbackData) {
		withAppContext(log, toggleFullscreen)
	})
	rootMenu.Append(menu.SubMenu("View", viewMenu))

	helpMenu := menu.NewMenu()
	helpMenu.AddText("Project Repository", nil, func(_ *menu.CallbackData) {
		withAppContext(log, func(ctx context.Context) {
			wruntime.BrowserOpenURL(ctx, repoURL)
		})
	})
	rootMenu.Append(menu.SubMenu("Help", helpMenu))

	return rootMenu
}

func openPathInExplorer(ctx context.Context, log logrus.FieldLogger, path string) {
	if path == "" {
		return
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		log.WithError(err).WithField("path", path).Warn("create directory")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	wruntime.BrowserOpenURL(ctx, fileURI(abs))
}

func fileURI(path string) string {
	clean := filepath.ToSlash(path)
	if runtime.GOOS == "windows" && len(clean) > 0 && clean[0] != '/' {
		clean = "/" + clean
	}
	u := url.URL{Scheme: "file", Path: clean}
	return u.String()
}

func toggleFullscreen(ctx context.Context) {
	if wruntime.WindowIsFullscreen(ctx) {
		wruntime.WindowUnfullscreen(ctx)
		return
	}
	wruntime.WindowFullscreen(ctx)
}

func setAppContext(ctx context.Context) {
	appCtxMu.Lock()
	defer appCtxMu.Unlock()
	appCtx = ctx
}

func withAppContext(log logrus.FieldLogger, action func(context.Context)) {
	appCtxMu.RLock()
	ctx := appCtx
	appCtxMu.RUnlock()
	if ctx == nil {
		log.Debug("application context not initialised; ignoring menu action")
		return
	}
	action(ctx)
}
