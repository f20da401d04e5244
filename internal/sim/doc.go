// Package sim implements the espresso machine behaviour model.
//
// The model is split in two layers:
//
//	┌────────────────────────────────────────────────┐
//	│ Engine                                         │
//	│  single goroutine, owns the Machine            │
//	│  ├─ command channel (state requests, settings) │
//	│  ├─ phase timer (single-shot, next transition) │
//	│  ├─ sample ticker (200 ms while operating)     │
//	│  └─ water level ticker (5 s)                   │
//	└───────────────┬────────────────────────────────┘
//	                │ owns
//	┌───────────────▼────────────────────────────────┐
//	│ Machine                                        │
//	│  pure state: phase table walk, sample curves   │
//	│  no goroutines, no timers, clock passed in     │
//	└────────────────────────────────────────────────┘
//
// All mutation happens on the engine goroutine, so callbacks observe a
// consistent ordering: a phase transition due at the same instant as a
// sample tick is always delivered before the sample. The Machine layer
// is directly drivable in tests by passing explicit times.
package sim
