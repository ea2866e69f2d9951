package control

// Owner identifies which evaluator holds the advisory claim over the
// shared pump actuator.
type Owner string

// Known owners. Unowned is the zero value.
const (
	Unowned   Owner = ""
	OwnerPV   Owner = "pv"
	OwnerHeat Owner = "heat"
)

// Ownership tracks which evaluator turned the shared pump on for its
// own purpose and is therefore responsible for eventually releasing it
// (afterrun included). The claim is advisory, not a lock: any writer
// can still flip the pump, and the holder drops its claim when it
// observes an external off rather than fighting it.
//
// Accessed only from the evaluation goroutine; no locking needed.
type Ownership struct {
	holder Owner
}

// NewOwnership creates an unowned registry.
func NewOwnership() *Ownership {
	return &Ownership{}
}

// Claim records who the pump now belongs to. Last claim wins, which
// mirrors the last-writer-wins actuator semantics.
func (o *Ownership) Claim(who Owner) {
	o.holder = who
}

// Release clears the claim, but only when who actually holds it.
func (o *Ownership) Release(who Owner) {
	if o.holder == who {
		o.holder = Unowned
	}
}

// Holder returns the current claim holder, or Unowned.
func (o *Ownership) Holder() Owner {
	return o.holder
}

// Held reports whether who currently holds the claim.
func (o *Ownership) Held(who Owner) bool {
	return o.holder == who
}
