// Package fragmentedqueue provides a fragmented strength-gated queue over
// feature vectors.
//
// A producer enqueues one vector per time step together with a scalar
// strength. A read (Peek or DequeueStep) blends vectors from the front of the
// queue, each weighted by its strength, until the blend weighs exactly the
// configured fragment strength; the entry that crosses the threshold
// contributes only the remainder. DequeueStep then removes exactly one entry
// from the front, so consecutive reads overlap and interpolate between
// neighbouring features. Reads on a queue holding less than one fragment are
// valid and return a lighter, partial blend, which lets decoding start before
// an entire stream is enqueued.
//
// Entries are segmented into features with FindFeatureGroups, a contiguous
// run of entries that contains at least one strength of
// FeatureGroupThreshold or more. Genome operators (Crossover, AddNoise,
// WeightedAverageFeatures, BasicInterpolate, ShuffleVectors, ShuffleQueue,
// HalfAndHalfQueue) treat two queues of equal length as aligned genomes.
// Randomised operators draw from the generator injected with WithRand or
// WithSeed.
//
// State round-trips through a labelled two-section text format:
//
//	(strengths)
//	0.9,0.2,1
//	(vectors)
//	0.1,0.2
//	0.3,0.4
//	0.5,0.6
//
// A Queue owns its vectors exclusively and is not safe for concurrent use.
package fragmentedqueue
