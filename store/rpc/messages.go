package rpc

import (
	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Request is the request message for every method.
// Each method uses the subset of fields it needs.
type Request struct {
	Key   string
	Value []byte
	Start int64
	End   int64
}

// Response is the response message for every method.
type Response struct {
	OK    bool
	Value []byte
	Items [][]byte
}

// The messages travel as protobufs
// described by rpc.proto.
// Their descriptors are built here from descriptor protos
// and the messages themselves are dynamicpb.Messages,
// so gRPC's default codec handles them with no generated code.

const (
	protoPackage = "pile"
	serviceName  = protoPackage + ".Store"
)

var (
	requestDesc  protoreflect.MessageDescriptor
	responseDesc protoreflect.MessageDescriptor

	reqKey, reqValue, reqStart, reqEnd protoreflect.FieldDescriptor
	respOK, respValue, respItems       protoreflect.FieldDescriptor
)

func init() {
	var (
		str   = descriptorpb.FieldDescriptorProto_TYPE_STRING
		bytes = descriptorpb.FieldDescriptorProto_TYPE_BYTES
		i64   = descriptorpb.FieldDescriptorProto_TYPE_INT64
		bol   = descriptorpb.FieldDescriptorProto_TYPE_BOOL
	)

	var methods []*descriptorpb.MethodDescriptorProto
	for _, m := range methodNames {
		methods = append(methods, &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(m),
			InputType:  proto.String("." + protoPackage + ".Request"),
			OutputType: proto.String("." + protoPackage + ".Response"),
		})
	}

	fdp := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("store/rpc/rpc.proto"),
		Package: proto.String(protoPackage),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Request"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("key", 1, str, false),
					field("value", 2, bytes, false),
					field("start", 3, i64, false),
					field("end", 4, i64, false),
				},
			},
			{
				Name: proto.String("Response"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("ok", 1, bol, false),
					field("value", 2, bytes, false),
					field("items", 3, bytes, true),
				},
			},
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name:   proto.String("Store"),
			Method: methods,
		}},
	}

	files, err := protodesc.NewFiles(&descriptorpb.FileDescriptorSet{File: []*descriptorpb.FileDescriptorProto{fdp}})
	if err != nil {
		panic(errors.Wrap(err, "creating Files object"))
	}
	requestDesc = mustMessage(files.FindDescriptorByName(protoPackage + ".Request"))
	responseDesc = mustMessage(files.FindDescriptorByName(protoPackage + ".Response"))

	reqFields := requestDesc.Fields()
	reqKey, reqValue, reqStart, reqEnd = reqFields.ByNumber(1), reqFields.ByNumber(2), reqFields.ByNumber(3), reqFields.ByNumber(4)

	respFields := responseDesc.Fields()
	respOK, respValue, respItems = respFields.ByNumber(1), respFields.ByNumber(2), respFields.ByNumber(3)
}

func field(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type, repeated bool) *descriptorpb.FieldDescriptorProto {
	label := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	if repeated {
		label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
	}
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		JsonName: proto.String(name),
		Number:   proto.Int32(number),
		Label:    label.Enum(),
		Type:     typ.Enum(),
	}
}

func mustMessage(d protoreflect.Descriptor, err error) protoreflect.MessageDescriptor {
	if err != nil {
		panic(errors.Wrap(err, "finding message descriptor"))
	}
	md, ok := d.(protoreflect.MessageDescriptor)
	if !ok {
		panic(errors.Errorf("%s is not a message", d.FullName()))
	}
	return md
}

func (r *Request) toProto() *dynamicpb.Message {
	m := dynamicpb.NewMessage(requestDesc)
	if r.Key != "" {
		m.Set(reqKey, protoreflect.ValueOfString(r.Key))
	}
	if len(r.Value) > 0 {
		m.Set(reqValue, protoreflect.ValueOfBytes(r.Value))
	}
	if r.Start != 0 {
		m.Set(reqStart, protoreflect.ValueOfInt64(r.Start))
	}
	if r.End != 0 {
		m.Set(reqEnd, protoreflect.ValueOfInt64(r.End))
	}
	return m
}

func requestFromProto(m protoreflect.Message) *Request {
	return &Request{
		Key:   m.Get(reqKey).String(),
		Value: m.Get(reqValue).Bytes(),
		Start: m.Get(reqStart).Int(),
		End:   m.Get(reqEnd).Int(),
	}
}

func (r *Response) toProto() *dynamicpb.Message {
	m := dynamicpb.NewMessage(responseDesc)
	if r.OK {
		m.Set(respOK, protoreflect.ValueOfBool(true))
	}
	if len(r.Value) > 0 {
		m.Set(respValue, protoreflect.ValueOfBytes(r.Value))
	}
	if len(r.Items) > 0 {
		items := m.NewField(respItems)
		list := items.List()
		for _, item := range r.Items {
			list.Append(protoreflect.ValueOfBytes(item))
		}
		m.Set(respItems, items)
	}
	return m
}

// responseFromProto decodes a Response.
// Empty byte strings decode as empty, non-nil slices.
func responseFromProto(m protoreflect.Message) *Response {
	resp := &Response{
		OK:    m.Get(respOK).Bool(),
		Value: nonNil(m.Get(respValue).Bytes()),
	}
	list := m.Get(respItems).List()
	resp.Items = make([][]byte, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		resp.Items = append(resp.Items, nonNil(list.Get(i).Bytes()))
	}
	return resp
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
