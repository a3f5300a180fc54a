//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package redis provides redis client construction shared by redis-backed
// components such as the snapshot tracker.
package redis

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ClientBuilder builds a redis client from builder options.
type ClientBuilder func(opts ...ClientBuilderOpt) (redis.UniversalClient, error)

var globalBuilder ClientBuilder = DefaultClientBuilder

// SetClientBuilder replaces the builder used by NewClient. Deployments with
// managed redis access can install their own construction path here.
func SetClientBuilder(builder ClientBuilder) {
	globalBuilder = builder
}

// GetClientBuilder returns the installed client builder.
func GetClientBuilder() ClientBuilder {
	return globalBuilder
}

// NewClient builds a client through the installed builder.
func NewClient(opts ...ClientBuilderOpt) (redis.UniversalClient, error) {
	return globalBuilder(opts...)
}

// DefaultClientBuilder builds a universal client from a redis URL.
func DefaultClientBuilder(builderOpts ...ClientBuilderOpt) (redis.UniversalClient, error) {
	o := &ClientBuilderOpts{}
	for _, opt := range builderOpts {
		opt(o)
	}
	if o.URL == "" {
		return nil, fmt.Errorf("redis: url is empty")
	}
	opts, err := redis.ParseURL(o.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url %s: %w", o.URL, err)
	}
	universalOpts := &redis.UniversalOptions{
		Addrs:                 []string{opts.Addr},
		DB:                    opts.DB,
		Username:              opts.Username,
		Password:              opts.Password,
		Protocol:              opts.Protocol,
		ClientName:            opts.ClientName,
		TLSConfig:             opts.TLSConfig,
		MaxRetries:            opts.MaxRetries,
		MinRetryBackoff:       opts.MinRetryBackoff,
		MaxRetryBackoff:       opts.MaxRetryBackoff,
		DialTimeout:           opts.DialTimeout,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		ContextTimeoutEnabled: opts.ContextTimeoutEnabled,
		PoolFIFO:              opts.PoolFIFO,
		PoolSize:              opts.PoolSize,
		PoolTimeout:           opts.PoolTimeout,
		MinIdleConns:          opts.MinIdleConns,
		MaxIdleConns:          opts.MaxIdleConns,
		MaxActiveConns:        opts.MaxActiveConns,
		ConnMaxIdleTime:       opts.ConnMaxIdleTime,
		ConnMaxLifetime:       opts.ConnMaxLifetime,
	}
	return redis.NewUniversalClient(universalOpts), nil
}

// ClientBuilderOpt is the option for the redis client builder.
type ClientBuilderOpt func(*ClientBuilderOpts)

// ClientBuilderOpts holds the options for the redis client builder.
type ClientBuilderOpts struct {
	URL string
}

// WithClientBuilderURL sets the redis url for the client builder.
// scheme: redis://<username>:<password>@<host>:<port>/<db>?<options>
// options: refer to redis.ParseURL.
func WithClientBuilderURL(url string) ClientBuilderOpt {
	return func(opts *ClientBuilderOpts) {
		opts.URL = url
	}
}
