package monitor

// MultiSink publishes each frame result to every sink in order
type MultiSink []Sink

// Publish the result to all sinks
func (m MultiSink) Publish(res *FrameResult) {
	for _, s := range m {
		s.Publish(res)
	}
}
