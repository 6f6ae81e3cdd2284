package queue

import "engrave-queue/internal/domain"

// allowed maps a target status to the statuses it may be entered from.
// completed and cancelled appear on no right-hand side: they are terminal.
var allowed = map[domain.Status][]domain.Status{
	domain.StatusProcessing: {domain.StatusPending},
	domain.StatusCompleted:  {domain.StatusProcessing},
	domain.StatusPending:    {domain.StatusProcessing},
	domain.StatusCancelled:  {domain.StatusPending, domain.StatusProcessing},
}

// CanTransition reports whether from -> to is part of the workflow.
func CanTransition(from, to domain.Status) bool {
	for _, s := range allowed[to] {
		if s == from {
			return true
		}
	}
	return false
}
