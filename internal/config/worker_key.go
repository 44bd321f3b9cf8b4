package config

type WorkerKeyStruct struct {
	PersistViolationsQueue string
	PersistGradebookQueue  string
}

var WorkerKey = &WorkerKeyStruct{
	PersistViolationsQueue: "persist_violations_queue",
	PersistGradebookQueue:  "persist_gradebook_queue",
}
