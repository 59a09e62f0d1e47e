// Package render raymarches the simulation grids into a color image.
//
// A Renderer owns one RGBA32Float output image on the compute service. Each
// Render binds the velocity front (density lives in its w channel) and the
// pressure and divergence grids as read-only inputs, dispatches the
// Raymarch kernel over the image in 8×8 tiles and blits the result into a
// draw.Image.
//
// Usage:
//
//	r, err := render.New(svc, set, reg)
//	if err != nil {
//	    return err
//	}
//	defer r.Release()
//
//	target := render.NewPixmapTarget(640, 480)
//	cam := render.DefaultCamera()
//	if err := r.Render(cam, target); err != nil {
//	    return err
//	}
//	png.Encode(f, target.Image())
//
// The renderer never writes a grid.
package render
