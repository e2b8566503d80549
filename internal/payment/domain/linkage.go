package domain

import "github.com/bwmarrin/snowflake"

// EnrollmentEffect is what a payment outcome does to its enrollment.
type EnrollmentEffect int

const (
	EffectNone EnrollmentEffect = iota
	EffectApprove
	EffectCancel
)

// EffectOf maps a payment status to its enrollment effect.
func EffectOf(s Status) EnrollmentEffect {
	switch s {
	case StatusCompleted:
		return EffectApprove
	case StatusCancelled, StatusChargedback:
		return EffectCancel
	}
	return EffectNone
}

type LinkAction int

const (
	// LinkSkip leaves the payment unlinked.
	LinkSkip LinkAction = iota
	// LinkUseLinked uses the enrollment already referenced by the payment.
	LinkUseLinked
	// LinkExisting attaches the student's existing enrollment to the payment.
	LinkExisting
	// LinkCreateApproved creates an approved enrollment and attaches it.
	LinkCreateApproved
)

func (a LinkAction) String() string {
	switch a {
	case LinkUseLinked:
		return "use_linked"
	case LinkExisting:
		return "link_existing"
	case LinkCreateApproved:
		return "create_approved"
	}
	return "skip"
}

type Linkage struct {
	Action       LinkAction
	EnrollmentID snowflake.ID
}

// ResolveLinkage picks the enrollment a payment outcome applies to. The
// payment's own link wins, then an enrollment for the same student and course.
// A new enrollment is only created for a successful payment.
func ResolveLinkage(linked, existing *snowflake.ID, effect EnrollmentEffect) Linkage {
	if linked != nil && *linked != 0 {
		return Linkage{Action: LinkUseLinked, EnrollmentID: *linked}
	}
	if existing != nil && *existing != 0 {
		return Linkage{Action: LinkExisting, EnrollmentID: *existing}
	}
	if effect == EffectApprove {
		return Linkage{Action: LinkCreateApproved}
	}
	return Linkage{Action: LinkSkip}
}
