package config

type WorkerKeyStruct struct {
	PersistStrikesQueue  string
	PersistAttemptsQueue string
	PersistProgressQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistStrikesQueue:  "persist_strikes_queue",
	PersistAttemptsQueue: "persist_attempts_queue",
	PersistProgressQueue: "persist_progress_queue",
}
