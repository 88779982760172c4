package meta

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// 元信息对象，同一请求内的处理器共享
type metadata struct {
	carrier map[interface{}]interface{}
	mu      sync.RWMutex
}

func (c *metadata) value(key interface{}) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.carrier[key]
}

func (c *metadata) withValue(key, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.carrier[key] = value
}

type contextKey struct{}

type requestIDKey struct{}

var metaContextKey = contextKey{}

// Begin 开启元信息对象
// 如父类上下文中存在元信息对象，则直接返回父类上下文；
// 否则返回包含新元信息对象的子类上下文，并生成请求ID。
func Begin(parent context.Context) context.Context {
	if parent.Value(metaContextKey) != nil {
		return parent
	}
	md := &metadata{
		carrier: map[interface{}]interface{}{
			requestIDKey{}: uuid.NewString(),
		},
	}
	return context.WithValue(parent, metaContextKey, md)
}

func metadataFrom(parent context.Context) *metadata {
	md, _ := parent.Value(metaContextKey).(*metadata)
	return md
}

// WithValue 设置键值对至上下文的元信息对象，未调用 Begin 时忽略
func WithValue(parent context.Context, key, val interface{}) {
	if md := metadataFrom(parent); md != nil {
		md.withValue(key, val)
	}
}

// Value 从上下文的元信息对象中获取对应key的值
func Value(parent context.Context, key interface{}) interface{} {
	md := metadataFrom(parent)
	if md == nil {
		return nil
	}
	return md.value(key)
}

// SetRequestID overrides the generated request id, e.g. with an inbound x-request-id header.
func SetRequestID(parent context.Context, id string) {
	if id != "" {
		WithValue(parent, requestIDKey{}, id)
	}
}

// RequestID returns the request id, or "" outside of Begin.
func RequestID(parent context.Context) string {
	id, _ := Value(parent, requestIDKey{}).(string)
	return id
}
