package viewport

import (
	"math"

	"siteplan/pkg/geometry"
)

// FitToContainer scales the image to fit inside the container, preserving
// its aspect ratio, and centers it. Degenerate sizes yield the identity.
func FitToContainer(container, image geometry.Size) Transform {
	if container.Empty() || image.Empty() {
		return Identity()
	}

	scale := math.Min(container.Width/image.Width, container.Height/image.Height)
	return Transform{
		Scale:      scale,
		TranslateX: (container.Width - image.Width*scale) / 2,
		TranslateY: (container.Height - image.Height*scale) / 2,
	}
}

// Reconciler recomputes the initial fit whenever the container or the
// source image changes size. Any user pan/zoom is discarded on recompute.
type Reconciler struct {
	vp        *Viewport
	container geometry.Size
	image     geometry.Size
	fitted    bool
}

// NewReconciler binds a reconciler to a viewport.
func NewReconciler(vp *Viewport) *Reconciler {
	return &Reconciler{vp: vp}
}

// Container returns the last observed container size.
func (r *Reconciler) Container() geometry.Size {
	return r.container
}

// Image returns the last observed image size.
func (r *Reconciler) Image() geometry.Size {
	return r.image
}

// SetContainer records a container size. It returns true if the transform
// was recomputed.
func (r *Reconciler) SetContainer(size geometry.Size) bool {
	if r.fitted && size == r.container {
		return false
	}
	r.container = size
	r.Refit()
	return true
}

// SetImage records the natural size of the background image. A zero size
// stands for "no image" (not loaded or failed to load).
func (r *Reconciler) SetImage(size geometry.Size) bool {
	if r.fitted && size == r.image {
		return false
	}
	r.image = size
	r.Refit()
	return true
}

// Refit overwrites the viewport transform with the fit for the current sizes.
func (r *Reconciler) Refit() {
	r.vp.Set(FitToContainer(r.container, r.image))
	r.fitted = true
}
