package codec

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/stardustagi/HoloServe/protocol"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type ICodec interface {
	// DecodeEvent 解码平台事件
	DecodeEvent(data []byte) (*protocol.Event, error)
	EncodeResult(result *protocol.JobResult) ([]byte, error)
}

type JsonCodec struct {
}

func NewJsonCodec() ICodec {
	return &JsonCodec{}
}

func (c *JsonCodec) DecodeEvent(data []byte) (*protocol.Event, error) {
	var event protocol.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (c *JsonCodec) EncodeResult(result *protocol.JobResult) ([]byte, error) {
	return json.Marshal(result)
}
