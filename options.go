package aero9

// Submitter consumes finalized command streams. The native replay backend
// implements it; tests usually leave it unset and inspect the stream
// returned by Flush directly.
type Submitter interface {
	Submit(stream []byte) error
}

// DeviceOption configures a Device during creation.
type DeviceOption func(*deviceOptions)

// deviceOptions holds optional configuration for NewDevice.
type deviceOptions struct {
	streamCapacity   int
	layoutCacheLimit int
	shaderCacheLimit int
	submitter        Submitter
}

func defaultDeviceOptions() deviceOptions {
	// Unlimited caches: an evicted handle would re-emit its creation
	// packet and break single-creation accounting on the host.
	return deviceOptions{}
}

// WithStreamCapacity caps the command stream at n bytes. Appends past the
// cap fail with a stream overflow error instead of truncating; 0 (the
// default) lets the stream grow as needed.
func WithStreamCapacity(n int) DeviceOption {
	return func(o *deviceOptions) {
		o.streamCapacity = n
	}
}

// WithSubmitter routes every finalized stream to s. Without a submitter
// the device only accumulates; the caller drains streams via Flush.
func WithSubmitter(s Submitter) DeviceOption {
	return func(o *deviceOptions) {
		o.submitter = s
	}
}

// WithLayoutCacheLimit sets a soft limit on cached input layouts. Evicted
// layouts emit DESTROY_INPUT_LAYOUT; 0 means unlimited.
func WithLayoutCacheLimit(n int) DeviceOption {
	return func(o *deviceOptions) {
		o.layoutCacheLimit = n
	}
}

// WithShaderCacheLimit sets a soft limit on cached synthesized shaders.
// Evicted shaders emit DESTROY_SHADER; 0 means unlimited.
func WithShaderCacheLimit(n int) DeviceOption {
	return func(o *deviceOptions) {
		o.shaderCacheLimit = n
	}
}
