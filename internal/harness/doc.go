// Package harness runs conformance scenarios against the resolver.
//
// A scenario is a YAML file that seeds an in-memory store with variables,
// resolves a sequence of templates through a real engine.Resolver wired to
// that store, and checks the outcome:
//
//	name: profile_override
//	description: Profile variables shadow globals
//	variables:
//	  profile_id: prod
//	  global:
//	    - name: host
//	      value: localhost
//	  profile:
//	    - name: host
//	      value: api.example.com
//	steps:
//	  - template: https://${host}/
//	    expect:
//	      value: https://api.example.com/
//	assertions:
//	  - type: trace_contains
//	    step_type: variable
//	    name: host
//
// Steps share one store, resolver and cache, so a scenario can observe
// cache hits on a repeated template and invalidation after a set or
// delete. Trace ids and timestamps come from testutil, which makes two
// runs of a scenario byte-identical; RunWithGolden compares the canonical
// snapshot of a run against testdata/golden.
package harness
