package privacy

// ZoomBucket quantizes a viewport span in degrees into buckets 0-4, coarser
// at wider spans. Fuzz stays stable while the viewer holds a zoom level and
// shifts when the bucket changes, so zooming in and out repeatedly does not
// let a viewer average out the offset.
func ZoomBucket(viewportSpanDegrees float64) int {
	switch {
	case viewportSpanDegrees > 0.30:
		return 0
	case viewportSpanDegrees > 0.15:
		return 1
	case viewportSpanDegrees > 0.08:
		return 2
	case viewportSpanDegrees > 0.04:
		return 3
	default:
		return 4
	}
}
