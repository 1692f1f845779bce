package app

import (
	"log"
	"os"
	"time"

	"sketchpad/internal/config"
)

// ConfigReloader watches a config file and pushes every valid new version
// into a State. Invalid edits are logged and skipped; the previous settings
// stay active.
type ConfigReloader struct {
	path          string
	state         *State
	lastMod       time.Time
	checkInterval time.Duration
	stopCh        chan struct{}
	doneCh        chan struct{}
}

// NewConfigReloader creates a reloader for path. The current modification
// time is the baseline, so only later edits trigger a reload.
func NewConfigReloader(path string, state *State, checkInterval time.Duration) *ConfigReloader {
	r := &ConfigReloader{
		path:          path,
		state:         state,
		checkInterval: checkInterval,
	}
	if info, err := os.Stat(path); err == nil {
		r.lastMod = info.ModTime()
	}
	return r
}

// Start begins watching in a background goroutine.
func (r *ConfigReloader) Start() {
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	go r.watchLoop()
}

// Stop stops the watcher goroutine and waits for it to exit.
func (r *ConfigReloader) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *ConfigReloader) watchLoop() {
	defer close(r.doneCh)
	ticker := time.NewTicker(r.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.Check()
		}
	}
}

// Check reloads the file if it changed since the last check and reports
// whether new settings were applied.
func (r *ConfigReloader) Check() bool {
	info, err := os.Stat(r.path)
	if err != nil || !info.ModTime().After(r.lastMod) {
		return false
	}
	r.lastMod = info.ModTime()

	cfg, err := config.Load(r.path)
	if err != nil {
		log.Printf("Config: ignoring edit: %v", err)
		return false
	}
	log.Printf("Config: reloaded %s", r.path)
	r.state.SetConfig(cfg)
	return true
}
