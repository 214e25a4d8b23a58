package s3

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "user/file.pdf", want: "user/file.pdf"},
		{name: "simple prefix", prefix: "resumes", key: "user/file.pdf", want: "resumes/user/file.pdf"},
		{name: "prefix trailing slash", prefix: "resumes/", key: "user/file.pdf", want: "resumes/user/file.pdf"},
		{name: "prefix and key slashes", prefix: "/resumes/", key: "/user/file.pdf", want: "resumes/user/file.pdf"},
		{name: "nested prefix", prefix: "resumes/prod", key: "avatars/a.jpg", want: "resumes/prod/avatars/a.jpg"},
		{name: "empty key", prefix: "resumes", key: "", want: "resumes"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestApplyEncryption(t *testing.T) {
	input := &s3.PutObjectInput{}
	(&Store{}).applyEncryption(input)
	if input.ServerSideEncryption != s3types.ServerSideEncryptionAes256 {
		t.Fatalf("expected AES256 default, got %q", input.ServerSideEncryption)
	}

	input = &s3.PutObjectInput{}
	(&Store{kmsKeyID: "key-1"}).applyEncryption(input)
	if input.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || input.SSEKMSKeyId == nil || *input.SSEKMSKeyId != "key-1" {
		t.Fatalf("expected KMS encryption, got %+v", input)
	}
}
