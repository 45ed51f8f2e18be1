// Package analysis is the orchestration core of issuelens. It turns a raw
// GitHub issue into a structured triage report via a single LLM call, and
// shields callers from unreliable upstreams: the Service composes cache
// lookup (TTL + single-flight), issue fetch, deterministic prompt
// construction, a bounded-retry Invoker, and untrusted-output validation
// with a schema-valid fallback.
package analysis
