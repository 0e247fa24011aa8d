package nmapout

// DeviceSnapshot is the accumulated identity of one host, ready for
// persistence. Empty MAC/Vendor/OS mean "not observed this pass" and must
// not erase values learned by earlier scans.
type DeviceSnapshot struct {
	IP     string
	MAC    string
	Vendor string
	OS     string
}

// hostAccumulator holds the in-progress snapshot of the host currently
// being parsed. It is scoped to a single parse pass and never shared.
type hostAccumulator struct {
	current DeviceSnapshot
	active  bool
}

// begin starts accumulating a new host. The previously held snapshot, if
// any, is returned so the caller can flush it first.
func (a *hostAccumulator) begin(ip string) (DeviceSnapshot, bool) {
	prev, held := a.current, a.active
	a.current = DeviceSnapshot{IP: ip}
	a.active = true
	return prev, held
}

// setMAC records the link-layer address and vendor for the current host.
func (a *hostAccumulator) setMAC(mac, vendor string) {
	if a.active {
		a.current.MAC = mac
		a.current.Vendor = vendor
	}
}

// setOS records the OS fingerprint hint for the current host.
func (a *hostAccumulator) setOS(os string) {
	if a.active {
		a.current.OS = os
	}
}

// ip returns the address of the host being accumulated, if any.
func (a *hostAccumulator) ip() (string, bool) {
	return a.current.IP, a.active
}

// flush hands back the held snapshot and clears the accumulator. This is
// the only path that persists the final host of a stream, so every parse
// pass must call it once at end of input.
func (a *hostAccumulator) flush() (DeviceSnapshot, bool) {
	snap, held := a.current, a.active
	a.current = DeviceSnapshot{}
	a.active = false
	return snap, held
}
