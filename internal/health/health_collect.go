// Package health reports the state of a running companion process.
package health

import (
	"runtime"
	"time"
)

// Options carries the editor-side facts Collect cannot read itself.
type Options struct {
	Version     string
	CallbackURL string
	PanelOpen   bool
	PanelID     string
	Instances   int
	Commands    []string
	Schemes     []string
	Now         func() time.Time
}

// Snapshot is the health report.
type Snapshot struct {
	Status      string      `json:"status"`
	Version     string      `json:"version,omitempty"`
	CallbackURL string      `json:"callbackUrl,omitempty"`
	Panel       PanelInfo   `json:"panel"`
	Commands    []string    `json:"commands,omitempty"`
	Schemes     []string    `json:"schemes,omitempty"`
	Goroutines  int         `json:"goroutines"`
	Memory      MemoryInfo  `json:"memory"`
	Runtime     RuntimeInfo `json:"runtime"`
	Timestamp   string      `json:"timestamp"`
}

// PanelInfo describes the assistant panel.
type PanelInfo struct {
	Open      bool   `json:"open"`
	SurfaceID string `json:"surfaceId,omitempty"`
	Instances int    `json:"instances"`
}

// MemoryInfo is a subset of runtime.MemStats in megabytes.
type MemoryInfo struct {
	AllocMB      float64 `json:"allocMb"`
	TotalAllocMB float64 `json:"totalAllocMb"`
	SysMB        float64 `json:"sysMb"`
	NumGC        uint32  `json:"numGc"`
}

// RuntimeInfo describes the Go runtime.
type RuntimeInfo struct {
	Version string `json:"version"`
	OS      string `json:"os"`
	Arch    string `json:"arch"`
	CPUs    int    `json:"cpus"`
}

// Collect returns a health snapshot for the current process.
func Collect(opts Options) Snapshot {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return Snapshot{
		Status:      "healthy",
		Version:     opts.Version,
		CallbackURL: opts.CallbackURL,
		Panel: PanelInfo{
			Open:      opts.PanelOpen,
			SurfaceID: opts.PanelID,
			Instances: opts.Instances,
		},
		Commands:   opts.Commands,
		Schemes:    opts.Schemes,
		Goroutines: runtime.NumGoroutine(),
		Memory: MemoryInfo{
			AllocMB:      float64(mem.Alloc) / 1024 / 1024,
			TotalAllocMB: float64(mem.TotalAlloc) / 1024 / 1024,
			SysMB:        float64(mem.Sys) / 1024 / 1024,
			NumGC:        mem.NumGC,
		},
		Runtime: RuntimeInfo{
			Version: runtime.Version(),
			OS:      runtime.GOOS,
			Arch:    runtime.GOARCH,
			CPUs:    runtime.NumCPU(),
		},
		Timestamp: now().Format(time.RFC3339),
	}
}
