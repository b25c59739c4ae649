package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ayusman/trexvision/internal/app"
	"github.com/ayusman/trexvision/internal/display"
	"github.com/ayusman/trexvision/internal/server"
	"github.com/ayusman/trexvision/internal/store"
	"github.com/ayusman/trexvision/internal/tray"
)

func main() {
	fmt.Println("T-Rex Vision - see only what moves")

	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	if err := run(opts); err != nil {
		log.Fatalf("Exiting: %v", err)
	}
}

func run(opts options) error {
	// Initialize the store
	if err := os.MkdirAll(opts.dataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(opts.dbPath())
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer st.Close()

	application, err := app.New(app.Config{
		Store:           st,
		Capture:         opts.capture,
		Detector:        opts.detector,
		RestoreSettings: opts.restore,
		ScreenshotDir:   opts.screenshotDir,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := startHTTP(opts, st, application)
	defer shutdownHTTP(httpServer)

	switch opts.mode {
	case modeHeadless:
		return runHeadless(ctx, application)
	case modeTray:
		return runTray(ctx, application, opts.listen)
	default:
		return runWindow(ctx, application)
	}
}

// startHTTP serves the API and dashboard in the background. It returns nil
// when the listen address is empty.
func startHTTP(opts options, st *store.Store, application *app.App) *http.Server {
	if opts.listen == "" {
		return nil
	}

	webDir := findWebDir(opts.dataDir)
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       application,
	})
	hs := srv.HTTPServer(opts.listen)

	go func() {
		fmt.Printf("Starting server on %s\n", opts.listen)
		if err := hs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Server failed: %v", err)
		}
	}()
	return hs
}

func shutdownHTTP(hs *http.Server) {
	if hs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := hs.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}

// runWindow paces the pipeline from the window loop on the main goroutine,
// as the GUI toolkit requires.
func runWindow(ctx context.Context, application *app.App) error {
	if err := application.Open(); err != nil {
		return err
	}
	defer application.Close()

	win := display.NewWindow(application)
	defer win.Close()

	return win.Run(ctx)
}

func runHeadless(ctx context.Context, application *app.App) error {
	if err := application.Start(); err != nil {
		return err
	}
	defer application.Stop()

	select {
	case <-ctx.Done():
	case <-application.Done():
	}
	return nil
}

// trayRefreshInterval is how often the tray picks up settings changed over
// HTTP.
const trayRefreshInterval = 500 * time.Millisecond

func runTray(ctx context.Context, application *app.App, listen string) error {
	if err := application.Start(); err != nil {
		return err
	}
	defer application.Stop()

	t := tray.New(application)
	if listen != "" {
		t.OnSettings(func() { openBrowser(dashboardURL(listen)) })
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go t.Watch(watchCtx, trayRefreshInterval)

	go func() {
		select {
		case <-ctx.Done():
		case <-application.Done():
		}
		t.Quit()
	}()

	// Blocks until Quit.
	t.Run()
	return nil
}

// dashboardURL turns a listen address such as ":8080" into a local URL.
func dashboardURL(listen string) string {
	if strings.HasPrefix(listen, ":") {
		return "http://localhost" + listen + "/"
	}
	return "http://" + listen + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	dataWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(dataWebDir); err == nil && info.IsDir() {
		return dataWebDir
	}

	return ""
}
