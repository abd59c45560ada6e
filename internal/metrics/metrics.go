// Package metrics exposes the Quality & Stats figures of spec.md §4.6
// (round-trip time, bandwidth, frame advantage) as Prometheus
// collectors, keyed per peer by queue ID so a multi-peer session layer
// can scrape every endpoint from one registry.
//
// Grounded on the prometheus/client_golang stack used across the
// retrieval pack's service-shaped repos; the teacher itself carries no
// metrics, so this is net-new domain-stack wiring rather than an
// adaptation of teacher code.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors bundles the gauges/counters one endpoint updates each
// tick. Register it with a prometheus.Registerer once per process.
type Collectors struct {
	RoundTripMillis  *prometheus.GaugeVec
	KbpsSent         *prometheus.GaugeVec
	FrameAdvantage   *prometheus.GaugeVec
	PacketsSentTotal *prometheus.CounterVec
	BytesSentTotal   *prometheus.CounterVec
	SendQueueLength  *prometheus.GaugeVec
}

// NewCollectors builds the metric family for the "peerproto" namespace.
func NewCollectors() *Collectors {
	return &Collectors{
		RoundTripMillis: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "peerproto",
			Name:      "round_trip_milliseconds",
			Help:      "Measured round-trip time to the peer.",
		}, []string{"queue_id"}),
		KbpsSent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "peerproto",
			Name:      "kbps_sent",
			Help:      "Outbound bandwidth including simulated per-packet header overhead.",
		}, []string{"queue_id"}),
		FrameAdvantage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "peerproto",
			Name:      "frame_advantage",
			Help:      "Signed local frame advantage over the peer (positive: we are ahead).",
		}, []string{"queue_id", "side"}),
		PacketsSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peerproto",
			Name:      "packets_sent_total",
			Help:      "Total messages queued for the transport.",
		}, []string{"queue_id"}),
		BytesSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "peerproto",
			Name:      "bytes_sent_total",
			Help:      "Total wire bytes queued for the transport.",
		}, []string{"queue_id"}),
		SendQueueLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "peerproto",
			Name:      "send_queue_length",
			Help:      "Pending (unacked) output frames queued for this peer.",
		}, []string{"queue_id"}),
	}
}

// MustRegister registers every collector with reg.
func (c *Collectors) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		c.RoundTripMillis,
		c.KbpsSent,
		c.FrameAdvantage,
		c.PacketsSentTotal,
		c.BytesSentTotal,
		c.SendQueueLength,
	)
}

// Sample is the subset of endpoint.NetworkStats metrics needs; kept
// as a plain struct so this package does not import internal/endpoint.
type Sample struct {
	QueueID              string
	RoundTripMillis      float64
	KbpsSent             float64
	LocalFrameAdvantage  int32
	RemoteFrameAdvantage int32
	SendQueueLen         int
}

// Observe records one stats sample for a peer. Counters for
// packets/bytes sent are incremented separately via IncPacketsSent /
// AddBytesSent as each message is queued for sending.
func (c *Collectors) Observe(s Sample) {
	c.RoundTripMillis.WithLabelValues(s.QueueID).Set(s.RoundTripMillis)
	c.KbpsSent.WithLabelValues(s.QueueID).Set(s.KbpsSent)
	c.FrameAdvantage.WithLabelValues(s.QueueID, "local").Set(float64(s.LocalFrameAdvantage))
	c.FrameAdvantage.WithLabelValues(s.QueueID, "remote").Set(float64(s.RemoteFrameAdvantage))
	c.SendQueueLength.WithLabelValues(s.QueueID).Set(float64(s.SendQueueLen))
}

// IncPacketsSent increments the packets-sent counter for queueID.
func (c *Collectors) IncPacketsSent(queueID string) {
	c.PacketsSentTotal.WithLabelValues(queueID).Inc()
}

// AddBytesSent adds n to the bytes-sent counter for queueID.
func (c *Collectors) AddBytesSent(queueID string, n float64) {
	c.BytesSentTotal.WithLabelValues(queueID).Add(n)
}
