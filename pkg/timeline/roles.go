package timeline

// RoleClassifier infers a participant role from tracked geometry. The default
// implementation is a bounding-box-size heuristic; callers needing real age or
// identity classification can swap in their own policy without touching the
// fusion pipeline.
type RoleClassifier interface {
	Classify(track *Track) Role
}

// FaceSizeRoleClassifier assigns parent/child by average face (or person) box
// area. Larger boxes read as closer-or-larger participants, which in the
// target recording setup correlates with the adult.
type FaceSizeRoleClassifier struct {
	// ParentThreshold is the average normalized area above which a track is
	// classified as the parent.
	ParentThreshold float64
}

// NewFaceSizeRoleClassifier returns the default role policy.
func NewFaceSizeRoleClassifier() *FaceSizeRoleClassifier {
	return &FaceSizeRoleClassifier{ParentThreshold: 0.15}
}

// Classify implements RoleClassifier.
func (c *FaceSizeRoleClassifier) Classify(track *Track) Role {
	if track == nil || len(track.Events) == 0 {
		return RoleUnknown
	}
	avg := track.AverageSize()
	if avg <= 0 {
		return RoleUnknown
	}
	if avg > c.ParentThreshold {
		return RoleParent
	}
	return RoleChild
}
