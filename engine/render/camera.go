package render

import "math"

// Camera is a pan/zoom viewport over a rectangular tile map
type Camera struct {
	X, Y    float64 // camera center position (world pixels)
	Zoom    float64 // zoom level (1.0 = default)
	MinZoom float64
	MaxZoom float64
	ScreenW int // viewport width in pixels
	ScreenH int // viewport height in pixels
	Speed   float64 // pan speed (pixels per second)

	// Map bounds for clamping, in world pixels
	MapW, MapH int
}

// NewCamera creates a camera with default settings
func NewCamera(screenW, screenH int) *Camera {
	return &Camera{
		Zoom:    1.0,
		MinZoom: 0.25,
		MaxZoom: 8.0,
		ScreenW: screenW,
		ScreenH: screenH,
		Speed:   500,
	}
}

// SetMapBounds sets the map size for camera clamping
func (c *Camera) SetMapBounds(w, h int) {
	c.MapW = w
	c.MapH = h
	c.clamp()
}

// Pan moves the camera by a screen pixel delta
func (c *Camera) Pan(dx, dy float64) {
	c.X += dx / c.Zoom
	c.Y += dy / c.Zoom
	c.clamp()
}

// SetZoom sets zoom level with clamping
func (c *Camera) SetZoom(z float64) {
	c.Zoom = math.Max(c.MinZoom, math.Min(c.MaxZoom, z))
}

// ZoomAt zooms toward a screen point
func (c *Camera) ZoomAt(delta float64, screenX, screenY int) {
	wx, wy := c.ScreenToWorld(screenX, screenY)
	c.SetZoom(c.Zoom * (1 + delta))
	wx2, wy2 := c.ScreenToWorld(screenX, screenY)
	// keep the point under the cursor stationary
	c.X += wx - wx2
	c.Y += wy - wy2
	c.clamp()
}

// CenterOn centers the camera on a world position
func (c *Camera) CenterOn(wx, wy float64) {
	c.X = wx
	c.Y = wy
	c.clamp()
}

// WorldToScreen converts a world pixel position to a screen position
func (c *Camera) WorldToScreen(wx, wy float64) (float64, float64) {
	sx := (wx-c.X)*c.Zoom + float64(c.ScreenW)/2
	sy := (wy-c.Y)*c.Zoom + float64(c.ScreenH)/2
	return sx, sy
}

// ScreenToWorld converts a screen pixel to a world pixel position
func (c *Camera) ScreenToWorld(sx, sy int) (float64, float64) {
	wx := (float64(sx)-float64(c.ScreenW)/2)/c.Zoom + c.X
	wy := (float64(sy)-float64(c.ScreenH)/2)/c.Zoom + c.Y
	return wx, wy
}

// VisibleTileRange returns the cells on screen, padded by pad pixels on every
// side so sprites overhanging their cell are still drawn.
func (c *Camera) VisibleTileRange(mapW, mapH, tileW, tileH, pad int) (minX, minY, maxX, maxY int) {
	wx0, wy0 := c.ScreenToWorld(0, 0)
	wx1, wy1 := c.ScreenToWorld(c.ScreenW, c.ScreenH)
	p := float64(pad)

	minX = int(math.Floor((wx0 - p) / float64(tileW)))
	minY = int(math.Floor((wy0 - p) / float64(tileH)))
	maxX = int(math.Ceil((wx1 + p) / float64(tileW)))
	maxY = int(math.Ceil((wy1 + p) / float64(tileH)))

	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX >= mapW {
		maxX = mapW - 1
	}
	if maxY >= mapH {
		maxY = mapH - 1
	}
	return
}

func (c *Camera) clamp() {
	if c.MapW > 0 {
		c.X = math.Max(0, math.Min(float64(c.MapW), c.X))
	}
	if c.MapH > 0 {
		c.Y = math.Max(0, math.Min(float64(c.MapH), c.Y))
	}
}
