// Package control runs the session controller: per-device discovery
// serialized FIFO, reverse-order per-device teardown on removal, and a
// signal-driven full teardown on exit (spec.md §4.5), grounded on
// internal/ghost/service.go's Service.Run/serve signal-context pattern and
// internal/ghost/cluster_host.go's managed-map/cancel/done bookkeeping for
// per-child lifecycle.
package control

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/openpldm/pldmd/internal/fwupdate"
	"github.com/openpldm/pldmd/internal/identifier"
	"github.com/openpldm/pldmd/internal/observability"
	"github.com/openpldm/pldmd/internal/pdr"
	"github.com/openpldm/pldmd/internal/platform"
	"github.com/openpldm/pldmd/internal/pldmerr"
	"github.com/openpldm/pldmd/internal/transport"
	"github.com/rs/zerolog/log"
)

// teardownTimeout bounds how long the controller waits for an in-flight
// update to notice cancellation during device removal or shutdown,
// mirroring internal/ghost/cluster_host.go stopManagedGhosts's 2s grace
// window.
const teardownTimeout = 2 * time.Second

type deviceState struct {
	tid          identifier.TID
	eid          identifier.EID
	locationHint string
	repo         *pdr.Repository

	updateCancel context.CancelFunc
	updateDone   chan struct{}
}

type addRequest struct {
	tid          identifier.TID
	eid          identifier.EID
	locationHint string
}

// Controller owns the live device set and drives add/remove/update
// lifecycle events through one serialized event loop (spec.md §5: "at
// most one update session is active" and "the session controller
// serializes" per-device discovery).
type Controller struct {
	idents    *identifier.Service
	transport *transport.Adapter
	pdrMgr    *pdr.Manager
	platform  platform.PlatformHandle
	pub       platform.PublicationSurface

	addQueue    chan addRequest
	removeQueue chan identifier.TID

	mu      sync.Mutex
	order   []identifier.TID
	devices map[identifier.TID]*deviceState

	updateMu sync.Mutex
}

// New builds a Controller over the shared transport/identifier services
// and the caller's platform collaborators.
func New(t *transport.Adapter, idents *identifier.Service, ph platform.PlatformHandle, pub platform.PublicationSurface) *Controller {
	return &Controller{
		idents:      idents,
		transport:   t,
		pdrMgr:      pdr.NewManager(t),
		platform:    ph,
		pub:         pub,
		addQueue:    make(chan addRequest, 16),
		removeQueue: make(chan identifier.TID, 16),
		devices:     make(map[identifier.TID]*deviceState),
	}
}

// Run blocks until SIGINT/SIGTERM, serving the add/remove event queues and
// tearing every live device down in reverse discovery order before
// returning (spec.md §4.5, §5 "Signal ... tears down all devices and
// exits the event loop").
func (c *Controller) Run(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return c.serve(sigCtx)
}

func (c *Controller) serve(ctx context.Context) error {
	statusTicker := time.NewTicker(30 * time.Second)
	defer statusTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("control: shutdown signal received, tearing down devices")
			c.teardownAll(context.Background())
			return nil
		case req := <-c.addQueue:
			c.handleAdd(ctx, req)
		case tid := <-c.removeQueue:
			c.handleRemove(ctx, tid)
		case <-statusTicker.C:
			log.Info().Int("devices", c.deviceCount()).Msg("control: status")
		}
	}
}

// AddDevice enqueues a device-added event; the controller's event loop
// processes additions strictly FIFO (spec.md §4.5 "queue inbound
// device-added events; serve FIFO").
func (c *Controller) AddDevice(tid identifier.TID, eid identifier.EID, locationHint string) {
	c.addQueue <- addRequest{tid: tid, eid: eid, locationHint: locationHint}
}

// RemoveDevice enqueues a device-removed event; it is served in the same
// loop as additions and does not pre-empt an in-flight update session
// (spec.md §5 "device-removed is queued").
func (c *Controller) RemoveDevice(tid identifier.TID) {
	c.removeQueue <- tid
}

func (c *Controller) handleAdd(ctx context.Context, req addRequest) {
	if err := c.idents.Bind(req.tid, req.eid); err != nil {
		log.Warn().Uint8("tid", uint8(req.tid)).Err(err).Msg("control: bind failed, dropping device-added event")
		return
	}
	ds := &deviceState{tid: req.tid, eid: req.eid, locationHint: req.locationHint}

	c.mu.Lock()
	c.order = append(c.order, req.tid)
	c.devices[req.tid] = ds
	c.mu.Unlock()

	repo, err := c.pdrMgr.Retrieve(ctx, req.tid, req.locationHint)
	if err != nil {
		log.Warn().Uint8("tid", uint8(req.tid)).Err(err).Msg("control: pdr retrieval failed")
		return
	}
	c.mu.Lock()
	ds.repo = repo
	c.mu.Unlock()
	log.Info().Uint8("tid", uint8(req.tid)).Str("device", repo.DeviceName).Msg("control: device ready")
}

func (c *Controller) handleRemove(ctx context.Context, tid identifier.TID) {
	c.teardownDevice(ctx, tid)

	c.mu.Lock()
	delete(c.devices, tid)
	for i, t := range c.order {
		if t == tid {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	c.idents.Unbind(tid)
}

// teardownDevice tears one device down firmware-update -> FRU -> platform
// -> base, per spec.md §4.5's stated reverse order.
func (c *Controller) teardownDevice(ctx context.Context, tid identifier.TID) {
	c.mu.Lock()
	ds, ok := c.devices[tid]
	c.mu.Unlock()
	if !ok {
		return
	}

	// firmware-update: cancel any in-flight session for this device.
	if ds.updateCancel != nil {
		ds.updateCancel()
		if ds.updateDone != nil {
			select {
			case <-ds.updateDone:
			case <-time.After(teardownTimeout):
			}
		}
	}

	// FRU: drop the parsed repository (FRU record sets live inside it).
	c.mu.Lock()
	ds.repo = nil
	c.mu.Unlock()

	// platform: make sure sensor polling is not left paused for a device
	// that is about to disappear.
	if c.platform != nil {
		c.platform.ResumePolling(uint8(tid))
	}

	// base: nothing further to release here — the firmware-update step
	// above already drove the orchestrator's own reservation cleanup via
	// context cancellation; base discovery state (the TID<->EID binding)
	// is freed by the caller's identifier.Unbind after this returns.
	log.Info().Uint8("tid", uint8(tid)).Msg("control: device torn down")
}

func (c *Controller) teardownAll(ctx context.Context) {
	c.mu.Lock()
	order := append([]identifier.TID(nil), c.order...)
	c.mu.Unlock()

	for i := len(order) - 1; i >= 0; i-- {
		c.teardownDevice(ctx, order[i])
	}
}

func (c *Controller) deviceCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.devices)
}

// Repository returns the last-retrieved PDR repository for tid, if any.
func (c *Controller) Repository(tid identifier.TID) (*pdr.Repository, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ds, ok := c.devices[tid]
	if !ok || ds.repo == nil {
		return nil, false
	}
	return ds.repo, true
}

// DeviceSummary is a read-only snapshot of one live device, for the
// operator-facing debug surface.
type DeviceSummary struct {
	TID          identifier.TID
	EID          identifier.EID
	LocationHint string
	DeviceName   string
	RecordCount  int
	UpdateActive bool
}

// Devices snapshots every live device in discovery order (SPEC_FULL.md §2
// "read-only JSON views of session/PDR state for operator tooling").
func (c *Controller) Devices() []DeviceSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]DeviceSummary, 0, len(c.order))
	for _, tid := range c.order {
		ds, ok := c.devices[tid]
		if !ok {
			continue
		}
		summary := DeviceSummary{TID: ds.tid, EID: ds.eid, LocationHint: ds.locationHint, UpdateActive: ds.updateCancel != nil}
		if ds.repo != nil {
			summary.DeviceName = ds.repo.DeviceName
			summary.RecordCount = len(ds.repo.Records)
		}
		out = append(out, summary)
	}
	return out
}

// StartUpdate drives a firmware-update session for tid. Only one update
// session runs at a time across every device (spec.md §5: "at most one
// update session is active"); a caller invoked while another session is
// running gets ErrSessionRunning immediately rather than queueing.
func (c *Controller) StartUpdate(ctx context.Context, tid identifier.TID, image fwupdate.ImageAccessor) (fwupdate.Result, error) {
	if !c.updateMu.TryLock() {
		return fwupdate.Result{}, pldmerr.ErrSessionRunning
	}
	defer c.updateMu.Unlock()

	c.mu.Lock()
	ds, ok := c.devices[tid]
	c.mu.Unlock()
	if !ok {
		return fwupdate.Result{}, fmt.Errorf("%w: tid=%d", pldmerr.ErrNoRoute, tid)
	}

	updateCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.mu.Lock()
	ds.updateCancel = cancel
	ds.updateDone = done
	c.mu.Unlock()
	defer func() {
		close(done)
		c.mu.Lock()
		ds.updateCancel = nil
		ds.updateDone = nil
		c.mu.Unlock()
		cancel()
	}()

	if c.platform != nil {
		c.platform.PausePolling(uint8(tid))
		defer c.platform.ResumePolling(uint8(tid))
	}

	deviceRecordIdx := 0
	orch := fwupdate.NewOrchestrator(c.transport, c.pub)
	result, err := orch.Run(updateCtx, tid, deviceRecordIdx, image)
	if err != nil {
		observability.RecordUpdateSession(uint8(tid), "failed")
	} else {
		observability.RecordUpdateSession(uint8(tid), "succeeded")
	}
	return result, err
}
