package compiler

import (
	"encoding/json"

	"go-content/supervisor"
)

// IPC message type codes. Every frame on the wire is {type, data}.
const (
	MsgVersionQuery = 0 // pool → worker, empty payload
	MsgVersionData  = 1 // worker → pool
	MsgBuildRequest = 2 // pool → worker
	MsgBuildResult  = 3 // worker → pool
)

// VersionData is the payload of a MsgVersionData frame.
type VersionData struct {
	Version int `json:"version"`
}

// BuildRequest is the payload of a MsgBuildRequest frame. All paths are
// absolute.
type BuildRequest struct {
	SourcePath string `json:"sourcePath"`
	TargetPath string `json:"targetPath"`
	Platform   string `json:"platform"`
}

// BuildResult is the payload of a MsgBuildResult frame. Workers answer
// exactly one result per request, in order. Outputs and References are
// absolute paths.
type BuildResult struct {
	SourcePath string   `json:"sourcePath"`
	TargetPath string   `json:"targetPath"`
	Platform   string   `json:"platform"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
	Outputs    []string `json:"outputs"`
	References []string `json:"references"`
}

func encodeMessage(msgType int, payload any) supervisor.Message {
	m := supervisor.Message{Type: msgType}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			m.Data = data
		}
	}
	return m
}

func decodeVersionData(m *supervisor.Message) (*VersionData, error) {
	v := &VersionData{}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeBuildResult(m *supervisor.Message) (*BuildResult, error) {
	r := &BuildResult{}
	if err := json.Unmarshal(m.Data, r); err != nil {
		return nil, err
	}
	return r, nil
}
