// Package lib provides a Go SDK to drive a Jarvis backend programmatically.
//
// It submits natural language tasks, follows their progress over the backend
// push channel and resolves the approvals of risky tasks, the same way the
// jarvis CLI does.
//
// # Quick Start
//
//	client, err := lib.New(ctx, lib.Config{ServerURL: "http://localhost:8000"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// The client loop must be running while tasks are submitted.
//	go client.Run(ctx)
//
//	res, err := client.RunTask(ctx, "delete the tmp files", lib.AlwaysApprove)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Outcome, res.Text)
//
// # Step by step interaction
//
// [Client.Submit] starts a task and returns once it has been submitted. The
// outcome is received with [Client.NextResult]. When the outcome is
// [OutcomeWaitingApproval], the decision is sent with [Client.Approve] or
// [Client.Reject] and the final outcome is received with another
// [Client.NextResult] call. [Client.RunTask] and [Client.NextResult] read the
// same result stream, use one or the other.
//
// # Presenting progress
//
// Set [Config].Presenter to receive the connectivity, progress, approval and
// message updates. The calls are made one at a time from the client loop, they
// must not block.
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotValid]: Invalid input (e.g. an empty task description).
//   - [ErrNotFound]: Resource does not exist (e.g. a history entry).
//   - [ErrRequestFailed]: The backend could not be reached or replied with an error.
//   - [ErrSubmissionInFlight]: A submission has not finished yet.
//   - [ErrNotRunning]: The client loop is not running.
//
// # History
//
// Every result is journaled on a local SQLite database and can be listed with
// [Client.History]. Set [Config].DisableHistory to skip it.
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines.
package lib
