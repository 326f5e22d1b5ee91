// Package events publishes committed progress changes (streaks awarded,
// lost, frozen and unfrozen; stacks entering or leaving their comprehension
// check) to collaborators such as notification or social features, without
// the progress service knowing who listens.
package events
