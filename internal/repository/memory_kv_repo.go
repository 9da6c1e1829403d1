package repository

import (
	"context"
	"sync"
)

// MemoryKVRepo はプロセス内メモリのキーバリューストア。
// テストと STORE_DRIVER=memory で使用する。プロセス終了で内容は失われる。
type MemoryKVRepo struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryKVRepo は空のMemoryKVRepoを生成する。
func NewMemoryKVRepo() *MemoryKVRepo {
	return &MemoryKVRepo{data: make(map[string]string)}
}

// Get は指定キーの値を取得する。
func (r *MemoryKVRepo) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.data[key]
	return v, ok, nil
}

// Set は指定キーに値を書き込む。
func (r *MemoryKVRepo) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = value
	return nil
}

// Delete は指定キーをまとめて削除する。
func (r *MemoryKVRepo) Delete(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		delete(r.data, k)
	}
	return nil
}

// Snapshot は現在の内容のコピーを返す。
func (r *MemoryKVRepo) Snapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.data))
	for k, v := range r.data {
		out[k] = v
	}
	return out
}

// compile-time interface check
var _ KeyValueStore = (*MemoryKVRepo)(nil)
