// Freetribe IPC core
// https://github.com/bangcorrupt/freetribe
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package ipc

import "sync"

// MaxWordCount is the widest single transfer this link tolerates: the
// wire header's 16-bit count field cannot represent 32768 or more.
const MaxWordCount = 32768

// DataSource supplies the words at a local address, used only to answer
// an inbound Request the peer raised that this side did not itself
// originate: the driver has no memory of its own, so the package
// wiring it to a concrete dma.Region (cpu/dspipc, dsp/cpuipc) must
// provide this.
type DataSource func(localAddr uint32, count uint16) []uint32

// Receiver is invoked for an inbound Transfer this side did not request,
// so the caller can act on unsolicited payloads. May be nil.
type Receiver func(meta Envelope, data []uint32)

// Driver is the user-facing transfer scheduler: FIFO-ordered submission
// queueing, at most one active transfer at a time, Request/Response
// dispatch, and the lock/drain/recover error path.
type Driver struct {
	mu sync.Mutex

	seq    Sequencer
	source DataSource
	onRecv Receiver

	reqRing  *entryRing
	inFlight *entryRing
	active   *QueueEntry
	locked   bool

	events *EventQueue

	Stats Stats
}

// NewDriver constructs a Driver over seq, with reqDepth the request ring's
// capacity and evtDepth the event queue's capacity (must be at least
// 2*reqDepth, or a burst of completions could overflow it). source
// answers inbound Requests this side did not itself submit; onRecv, if
// non-nil, is notified of unsolicited inbound Transfers.
func NewDriver(seq Sequencer, reqDepth, evtDepth int, source DataSource, onRecv Receiver) *Driver {
	if evtDepth < 2*reqDepth {
		panic("ipc: event queue capacity must be at least 2x request queue depth")
	}

	return &Driver{
		seq:      seq,
		source:   source,
		onRecv:   onRecv,
		reqRing:  newEntryRing(reqDepth),
		inFlight: newEntryRing(reqDepth),
		events:   NewEventQueue(evtDepth),
	}
}

// Init arms the underlying sequencer, wiring its completion callbacks to
// this driver's event queue.
func (d *Driver) Init() error {
	return d.seq.Init(
		func(meta Envelope, data []uint32) { d.onEvent(HostReadComplete, meta, data) },
		func(meta Envelope, data []uint32) { d.onEvent(HostWriteComplete, meta, data) },
		func(meta Envelope, data []uint32) { d.onEvent(Error, meta, data) },
	)
}

// onEvent is called from the simulated interrupt path (via the
// EventCallback closures above). It only ever enqueues; all driver state
// mutation happens on Tick, so onEvent never blocks the caller more than
// a channel send.
func (d *Driver) onEvent(kind EventKind, meta Envelope, data []uint32) {
	if !d.events.Push(Event{Kind: kind, Meta: meta, Data: data}) {
		// Overflow means the mainline stopped pumping; treat it exactly
		// like a hardware error rather than dropping a completion.
		d.events.Push(Event{Kind: Error, Meta: meta})
	}
}

// Locked reports whether the driver is currently draining after an
// error.
func (d *Driver) Locked() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.locked
}

// Unlock clears the locked state, allowing new submissions and launches
// to proceed. It does not retry anything that was drained.
func (d *Driver) Unlock() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.locked = false
}

// SubmitWrite queues (or, if idle, immediately launches) a fire-and-
// forget write of buf to remoteAddr. cb fires exactly once with the
// final verdict.
func (d *Driver) SubmitWrite(remoteAddr uint32, buf []uint32, cb Callback, ctx any) Status {
	if len(buf) >= MaxWordCount {
		return InvalidArgument
	}

	e := QueueEntry{
		RemoteAddr: remoteAddr,
		Src:        buf,
		WordCount:  uint16(len(buf)),
		Cb:         cb,
		Ctx:        ctx,
		Meta:       Envelope{OpKind: Transfer},
	}

	return d.submit(e)
}

// SubmitRead queues (or immediately launches) a request for the peer to
// send back len(dest) words read from remoteAddr. localAddr is this
// side's bus-visible address the peer's Response write targets; it must
// already be reserved (e.g. via the owning dma.Region's Reserve) with
// room for len(dest) words, since the peer writes to a real bus address,
// not a Go-only label. Once the Response lands, its payload is copied
// into dest and cb fires exactly once with the final verdict (or the
// driver errors out while the request is outstanding).
func (d *Driver) SubmitRead(remoteAddr, localAddr uint32, dest []uint32, cb Callback, ctx any) Status {
	if len(dest) >= MaxWordCount {
		return InvalidArgument
	}

	e := QueueEntry{
		RemoteAddr: remoteAddr,
		Src:        dest,
		WordCount:  uint16(len(dest)),
		Cb:         cb,
		Ctx:        ctx,
		Meta: Envelope{
			OpKind:    Request,
			Count:     uint16(len(dest)),
			RemoteSrc: remoteAddr,
			LocalDest: localAddr,
		},
	}

	return d.submit(e)
}

// submit implements the common path for both public Submit* entry
// points: reject outright while locked, launch immediately if idle,
// otherwise enqueue FIFO so callbacks fire in call order.
func (d *Driver) submit(e QueueEntry) Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.locked {
		return DriverLocked
	}

	if d.active == nil && d.reqRing.Empty() {
		status := d.launch(e)
		if status == BusOccupied {
			return BusOccupied
		}
		d.Stats.Submitted++
		return Success
	}

	if !d.reqRing.Push(e) {
		d.Stats.QueueFullRejections++
		return QueueFull
	}

	d.Stats.Submitted++
	return Success
}

// launch calls through to the sequencer. Caller holds d.mu.
func (d *Driver) launch(e QueueEntry) Status {
	words := e.Src
	if e.Meta.OpKind == Request {
		// A request is header-only on the wire: no payload travels with
		// it, only the envelope asking for one back.
		words = nil
	}

	status := d.seq.Submit(e.RemoteAddr, words, e.Meta)
	if status == BusOccupied {
		d.Stats.BusOccupiedRejections++
		return BusOccupied
	}

	eCopy := e
	d.active = &eCopy

	return Success
}

// tryLaunchNext pulls the next queued entry through to the sequencer, if
// idle and unlocked. Caller holds d.mu.
func (d *Driver) tryLaunchNext() {
	if d.locked || d.active != nil || d.reqRing.Empty() {
		return
	}

	e, _ := d.reqRing.Pop()

	status := d.launch(e)
	if status == BusOccupied {
		// The peer still has the bus; try again next Tick without
		// disturbing FIFO order among what's left.
		d.reqRing.PushFront(e)
	}
}

// Tick drains pending hardware events and advances the submission
// pipeline. It must be called from mainline on a schedule prompt enough
// that the event queue never overflows.
func (d *Driver) Tick() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for {
		ev, ok := d.events.Pop()
		if !ok {
			break
		}
		d.handle(ev)
	}

	d.tryLaunchNext()
}

// handle dispatches one drained event. Caller holds d.mu.
func (d *Driver) handle(ev Event) {
	switch ev.Kind {
	case HostWriteComplete:
		d.onWriteDone(ev)
	case HostReadComplete:
		d.onReadDone(ev)
	case Error:
		d.onError()
	}
}

// onWriteDone handles completion of a write this side launched. A
// completed Transfer is done; a completed Request is only the header
// going out, so it moves to the in-flight ring awaiting the peer's
// Response; a completed Response was this side acting as responder, and
// needs no further user-visible callback.
func (d *Driver) onWriteDone(ev Event) {
	e := d.active
	d.active = nil

	if e == nil {
		return
	}

	switch e.Meta.OpKind {
	case Transfer:
		fire(e.Cb, e.Ctx, Success)
		d.Stats.Completed++
	case Request:
		d.inFlight.Push(*e)
	case Response:
		d.Stats.Completed++
	}
}

// onReadDone handles an inbound header landing in local memory: a
// Response to a request we made, a Request the peer is making of us, or
// an unsolicited Transfer.
func (d *Driver) onReadDone(ev Event) {
	meta := ev.Meta

	switch meta.OpKind {
	case Response:
		e, ok := d.inFlight.Pop()
		if !ok {
			// Requests and responses correspond 1:1, so an empty ring
			// here is a protocol violation, not a recoverable error.
			panic("ipc: Response received with no request in flight")
		}

		copy(e.Src, ev.Data)

		fire(e.Cb, e.Ctx, Success)
		d.Stats.Completed++

	case Request:
		count, remoteSrc, localDest := meta.ReadParams()

		var data []uint32
		if d.source != nil {
			data = d.source(remoteSrc, count)
		}

		resp := QueueEntry{
			RemoteAddr: localDest,
			Src:        data,
			WordCount:  count,
			Meta:       meta.AsResponse(),
		}

		if !d.reqRing.Push(resp) {
			// No room to queue the reply; count it but do not error
			// the whole link out over a transient queue pressure spike.
			d.Stats.QueueFullRejections++
		}

	case Transfer:
		if d.onRecv != nil {
			d.onRecv(meta, ev.Data)
		}
	}
}

// onError runs the lock/drain path. Everything outstanding is failed;
// the driver stays locked until Unlock.
func (d *Driver) onError() {
	d.locked = true
	d.Stats.ErrorDrains++

	for {
		e, ok := d.reqRing.Pop()
		if !ok {
			break
		}
		fire(e.Cb, e.Ctx, Failed)
		d.Stats.Failed++
	}

	if d.active != nil {
		fire(d.active.Cb, d.active.Ctx, Failed)
		d.Stats.Failed++
		d.active = nil
	}

	for {
		e, ok := d.inFlight.Pop()
		if !ok {
			break
		}
		fire(e.Cb, e.Ctx, Failed)
		d.Stats.Failed++
	}
}
