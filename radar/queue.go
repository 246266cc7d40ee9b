package radar

import (
	"time"

	"github.com/teranos/netsukuku/netmap"
)

// MaxRadarScans bounds the RTT sample ring kept per peer across one scan
// window, grounded on the original radar.h MAX_RADAR_SCANS constant.
const MaxRadarScans = 10

// RTTDeltaMicro is the minimum RTT change (microseconds) that triggers a
// link_rtt_change event, grounded on radar.h's RTT_DELTA.
const RTTDeltaMicro = 1000

// entry is per-pending-probe state for one peer across a scan.
type entry struct {
	peer      netmap.Position
	addr      string
	sentAt    time.Time
	pongs     int
	samples   [MaxRadarScans]netmap.RTTMicro
	nSamples  int
	finalRTT  netmap.RTTMicro
	finalized bool
}

func newEntry(peer netmap.Position, addr string) *entry {
	return &entry{peer: peer, addr: addr}
}

// addSample records one ECHO_REPLY round-trip sample, dropping samples past
// the ring capacity (the scan finalizes on a timer regardless).
func (e *entry) addSample(rtt netmap.RTTMicro) {
	if e.nSamples < MaxRadarScans {
		e.samples[e.nSamples] = rtt
		e.nSamples++
	}
	e.pongs++
}

// finalize computes the smoothed RTT as the arithmetic mean of received
// samples, per the spec's permitted (mean or median) smoothing function.
func (e *entry) finalize() netmap.RTTMicro {
	if e.finalized {
		return e.finalRTT
	}
	e.finalized = true
	if e.nSamples == 0 {
		e.finalRTT = 0
		return 0
	}
	var sum uint64
	for i := 0; i < e.nSamples; i++ {
		sum += uint64(e.samples[i])
	}
	e.finalRTT = netmap.RTTMicro(sum / uint64(e.nSamples))
	return e.finalRTT
}
