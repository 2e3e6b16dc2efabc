package mockdriver

import "net"

// Background completions land here keyed by the owning handle's token,
// consumed by the next FDCntl call for that handle+direction. This is
// what lets a WouldBlock caller's retry return the already-completed
// result instead of re-issuing the syscall, matching spec §4.1's "clears
// the slot... free to accept a new waker on the next poll cycle". All
// access goes through d.mu; callers may also be holding the per-handle
// st.mu, and lock order here is always st.mu before d.mu.

type pendingReadResult struct {
	n   int
	err error
}

type pendingRecvFromResult struct {
	n    int
	addr net.Addr
	err  error
}

func (d *Driver) hasPendingRead(tok tokenKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pendingReads[tok]
	return ok
}

func (d *Driver) takePendingRead(tok tokenKey) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.pendingReads[tok]
	delete(d.pendingReads, tok)
	return r.n, r.err
}

func (d *Driver) storePendingRead(tok tokenKey, n int, err error) {
	d.mu.Lock()
	d.pendingReads[tok] = pendingReadResult{n: n, err: mapNetError(err)}
	d.mu.Unlock()
}

func (d *Driver) hasPendingWrite(tok tokenKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pendingWrites[tok]
	return ok
}

func (d *Driver) takePendingWrite(tok tokenKey) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.pendingWrites[tok]
	delete(d.pendingWrites, tok)
	return r.n, r.err
}

func (d *Driver) storePendingWrite(tok tokenKey, n int, err error) {
	d.mu.Lock()
	d.pendingWrites[tok] = pendingReadResult{n: n, err: mapNetError(err)}
	d.mu.Unlock()
}

func (d *Driver) hasPendingRecvFrom(tok tokenKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pendingRecvFroms[tok]
	return ok
}

func (d *Driver) takePendingRecvFrom(tok tokenKey) (int, net.Addr, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := d.pendingRecvFroms[tok]
	delete(d.pendingRecvFroms, tok)
	return r.n, r.addr, r.err
}

func (d *Driver) storePendingRecvFrom(tok tokenKey, n int, addr net.Addr, err error) {
	d.mu.Lock()
	d.pendingRecvFroms[tok] = pendingRecvFromResult{n: n, addr: addr, err: mapNetError(err)}
	d.mu.Unlock()
}

func (d *Driver) takePendingAccept(tok tokenKey) (pendingIncoming, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pendingAccepts[tok]
	if ok {
		delete(d.pendingAccepts, tok)
	}
	return p, ok
}

func (d *Driver) storePendingAccept(tok tokenKey, p pendingIncoming) {
	d.mu.Lock()
	d.pendingAccepts[tok] = p
	d.mu.Unlock()
}
