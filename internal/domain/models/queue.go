package models

// PhotoJob is the message consumed by the face processing worker.
type PhotoJob struct {
	PhotoID    string `json:"photoId"`
	StorageURL string `json:"storageUrl"`
}
