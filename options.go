package present

// Option configures a Window during creation.
//
// Example:
//
//	w := present.NewWindow(host,
//	    present.WithProperties(present.FramebufferProperties{
//	        SRGBColor:   true,
//	        DepthBits:   24,
//	        StencilBits: 8,
//	        BackBuffers: 2,
//	    }),
//	    present.WithSyncVideo(true),
//	)
type Option func(*options)

// options holds optional configuration for a Window.
type options struct {
	props         FramebufferProperties
	syncVideo     bool
	unexposedDraw bool
	copier        TextureCopier
	reclaim       bool
}

// defaultOptions returns the default window options: one back buffer, a
// 24-bit depth and 8-bit stencil buffer, linear color.
func defaultOptions() options {
	return options{
		props: FramebufferProperties{
			DepthBits:   24,
			StencilBits: 8,
			BackBuffers: 1,
		},
	}
}

// WithProperties sets the requested framebuffer properties.
// The negotiated properties are available from Window.Properties after Open.
func WithProperties(p FramebufferProperties) Option {
	return func(o *options) {
		o.props = p
	}
}

// WithSyncVideo restricts presentation to the vsync-locked Fifo mode.
func WithSyncVideo(enabled bool) Option {
	return func(o *options) {
		o.syncVideo = enabled
	}
}

// WithUnexposedDraw lets frames be drawn while the host reports the window
// as not exposed.
func WithUnexposedDraw(enabled bool) Option {
	return func(o *options) {
		o.unexposedDraw = enabled
	}
}

// WithTextureCopier sets the consumer that copies every rendered frame into
// textures after the render pass ends.
func WithTextureCopier(c TextureCopier) Option {
	return func(o *options) {
		o.copier = c
	}
}

// WithRenderPassReclaim destroys superseded render passes once no
// framebuffer and no pin references them. By default superseded passes are
// kept until Close.
func WithRenderPassReclaim(enabled bool) Option {
	return func(o *options) {
		o.reclaim = enabled
	}
}
