// Package godm provides:
//
// - Typed schemas over schemaless document maps (NewSchema, dsl, manifest)
// - A convert-then-validate cleaning pipeline with a stable error model via Issues
// - Tracked document instances whose Save emits minimal $set/$unset updates
// - Dot-notation resolution for update operator paths ($set, $push, $inc, ...)
// - Index declarations reconciled against what a collection actually has
//
// Design policy:
// - Keep the schema and document machinery in the root package; put store
//   access behind driver.Driver and its implementations under driver/.
// - Place the fluent builder and struct inference under dsl/, the YAML
//   manifest loader under manifest/, and the CLI under cmd/godm.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	user := dsl.Schema("User").
//		Field("name", dsl.String().Required()).
//		Field("age", dsl.Int().Min(0)).
//		MustBuild()
//
//	db := godm.Open(drv)
//	users := db.Collection(user)
//	doc, err := godm.New(user, map[string]any{"name": "sam"})
//	if err != nil {
//		// err lists every rejected field as godm.Issues
//	}
//	err = users.Save(ctx, doc)
package godm
