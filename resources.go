package aero9

import (
	"github.com/aerogpu/aero9/cmdstream"
	"github.com/aerogpu/aero9/texutil"
)

// CreateBuffer allocates a host buffer and returns its handle. Vertex
// buffers keep a CPU shadow of uploaded contents; the pre-transform draw
// path reads positions back from it.
func (d *Device) CreateBuffer(usage uint32, size uint64) (cmdstream.Handle, error) {
	if size == 0 || usage == 0 {
		return 0, ErrInvalidParameter
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	h := allocHandle()
	d.w.CreateBuffer(h, usage, size)
	if err := d.w.Err(); err != nil {
		return 0, err
	}
	d.resources[h] = usage
	if usage&cmdstream.UsageVertexBuffer != 0 {
		d.shadows[h] = make([]byte, size)
	}
	return h, nil
}

// CreateVertexBuffer allocates a vertex buffer.
func (d *Device) CreateVertexBuffer(size uint64) (cmdstream.Handle, error) {
	return d.CreateBuffer(cmdstream.UsageVertexBuffer, size)
}

// CreateIndexBuffer allocates an index buffer.
func (d *Device) CreateIndexBuffer(size uint64) (cmdstream.Handle, error) {
	return d.CreateBuffer(cmdstream.UsageIndexBuffer, size)
}

// UploadBuffer copies data into a buffer at offset.
func (d *Device) UploadBuffer(h cmdstream.Handle, offset uint64, data []byte) error {
	if len(data) == 0 {
		return ErrInvalidParameter
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.resources[h]; !ok {
		return ErrInvalidParameter
	}
	if shadow, ok := d.shadows[h]; ok {
		if offset+uint64(len(data)) > uint64(len(shadow)) {
			return ErrInvalidParameter
		}
		copy(shadow[offset:], data)
	}
	d.w.UploadResource(h, offset, data)
	return d.w.Err()
}

// CreateTexture2D allocates a 2D texture. mipLevels 0 requests the full
// chain down to 1x1.
func (d *Device) CreateTexture2D(usage uint32, format cmdstream.Format,
	width, height, mipLevels uint32) (cmdstream.Handle, error) {
	if width == 0 || height == 0 || format == cmdstream.FormatInvalid {
		return 0, ErrInvalidParameter
	}
	if mipLevels == 0 {
		mipLevels = texutil.FullMipChainLevels(width, height)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	h := allocHandle()
	d.w.CreateTexture2D(h, usage|cmdstream.UsageTexture, format,
		width, height, mipLevels, 1, texutil.RowPitch(format, width))
	if err := d.w.Err(); err != nil {
		return 0, err
	}
	d.resources[h] = usage | cmdstream.UsageTexture
	return h, nil
}

// UploadTexture copies pixel data into a texture subresource. The caller
// supplies rows packed at the layout pitch; offset addresses the packed
// linear mip chain.
func (d *Device) UploadTexture(h cmdstream.Handle, offset uint64, data []byte) error {
	if len(data) == 0 {
		return ErrInvalidParameter
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if usage, ok := d.resources[h]; !ok || usage&cmdstream.UsageTexture == 0 {
		return ErrInvalidParameter
	}
	d.w.UploadResource(h, offset, data)
	return d.w.Err()
}

// DestroyResource releases a buffer or texture. Bindings referencing the
// handle are cleared; the host unbinds on destroy as well.
func (d *Device) DestroyResource(h cmdstream.Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.resources[h]; !ok {
		return ErrInvalidParameter
	}
	delete(d.resources, h)
	delete(d.shadows, h)
	if d.stream0.buffer == h {
		d.stream0 = vertexStream{}
	}
	if d.boundStream.buffer == h {
		d.boundStream = vertexStream{}
	}
	if d.indexBuffer == h {
		d.indexBuffer = 0
	}
	if d.boundIndex == h {
		d.boundIndex = 0
	}
	for i := range d.textures {
		if d.textures[i] == h {
			d.textures[i] = 0
		}
	}
	d.w.DestroyResource(h)
	return d.w.Err()
}
