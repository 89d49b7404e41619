// Package harness replays scripted student sessions against a real engine.
//
// A scenario publishes catalog revisions, drives the engine through the same
// actions the CLI uses and records every step in a trace. The trace is
// compared against a golden file and the final state is checked with
// assertions.
//
// # Scenario Format
//
//	name: question_added_after_submission
//	description: "A submitted chapter gains a question"
//	catalogs:
//	  v1:
//	    class: tcs
//	    chapters:
//	      - id: C1
//	        version: "1"
//	        is_active: true
//	        quiz: [{id: q1, type: mcq, options: [a, b], correct_answer: a}]
//	flow:
//	  - invoke: login
//	    args: {student: Amina, class: tcs}
//	  - invoke: publish
//	    args: {catalog: v1}
//	  - invoke: sync
//	  - invoke: answer
//	    args: {chapter: C1, question: q1, choice: a}
//	    expect: {case: ok}
//	assertions:
//	  - type: final_state
//	    table: progress
//	    where: {chapter: C1}
//	    expect: {quiz.all_answered: true}
//
// # Steps
//
// publish, network (catalog/submission up or down) and advance (moves the
// fixed clock) control the environment. login, logout, sync, start,
// open-dashboard, answer, submit-quiz, hint, duration, feedback, video,
// lesson, submit, retry, dashboard and notifications drive the engine.
//
// # Assertion Types
//
//   - trace_contains: a step ran with matching args
//   - trace_order: steps ran in the specified order
//   - trace_count: a step ran exactly N times
//   - final_state: a record of the state, progress or notifications table
//     has the expected fields; nested fields use dotted paths
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory store, a fixed clock starting at
// testutil.Epoch and sequential export document ids, so traces are
// byte-identical across runs.
package harness
