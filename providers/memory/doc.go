// Package memory persists conversation history and replays it in the wire
// shape of a chosen provider.
//
// A [Driver] is bound to one provider formatter and one conversation owner
// (a parent class and id, for example "Thread" and "42"). Records are kept in
// a [Store]; the sibling packages inmemory, filestore and pgstore provide
// process-local, JSON file and PostgreSQL implementations. The [Manager]
// builds one driver per provider on first use and shares the store between
// them, so the same owner has an independent history per provider.
package memory
