// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// newFuzzRng seeds from FUZZ_SEED or the clock and logs the seed
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := time.Now().UnixNano()
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if s, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			seed = s
		}
	}
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// TestFuzzDecoder_RandomBytes feeds random bytes to the decoder and verifies
// it never panics
func TestFuzzDecoder_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()
		data := make([]byte, rng.Intn(512)+1)
		rng.Read(data)
		for _, b := range data {
			d.DecodeByte(b)
		}
	}
}

// TestFuzzDecoder_RandomReceiveEvents round-trips random RECEIVE frames
// through a noisy stream
func TestFuzzDecoder_RandomReceiveEvents(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)

	for i := 0; i < rounds; i++ {
		data := make([]byte, rng.Intn(64))
		rng.Read(data)
		address := uint8(rng.Intn(128))

		frame, err := Encode(address, MsgReceive, map[int]interface{}{KeyValue: data})
		if err != nil {
			t.Fatalf("round %d: Encode failed: %v", i, err)
		}

		// leading noise without START bytes
		noise := make([]byte, rng.Intn(16))
		rng.Read(noise)
		for j := range noise {
			if noise[j] == StartByte {
				noise[j] = 0x00
			}
		}

		d := NewDecoder()
		var got *Packet
		for _, b := range append(noise, frame...) {
			p, _ := d.DecodeByte(b)
			if p != nil {
				got = p
			}
		}
		if got == nil {
			t.Fatalf("round %d: frame not decoded: % X", i, frame)
		}
		if got.Address() != address || !bytes.Equal(got.Data(), data) {
			t.Fatalf("round %d: mismatch: addr 0x%02X data % X", i, got.Address(), got.Data())
		}
	}
}
