// Package moderation contains the core data model and decision logic for
// the SafeSpace content-moderation pipeline.
//
// The pipeline consumes newly created posts from a message bus, classifies
// them for hate speech (remote LLM provider, with a deterministic local
// fallback), maps the classification to a moderation decision under
// configurable thresholds, persists an immutable audit report to object
// storage, and republishes the outcome for downstream consumers.
//
// Subpackages:
//
//   - classifier: the Classifier interface, the DeepSeek provider client,
//     and the keyword-based fallback
//   - bus: message bus client wrappers (Kafka, plus in-memory for tests)
//   - reportstore: immutable report storage (MinIO, plus in-memory)
//   - disputestore: user disputes against automated decisions
//   - queue: the producer facade called from the post-creation flow
//   - worker: the orchestration loop tying it all together
package moderation
