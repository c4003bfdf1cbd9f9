package utils

import (
	"bytes"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3 connection settings, filled in from config at startup.
var (
	s3AccessKey string
	s3SecretKey string
	s3Bucket    string
	s3Region    = "us-east-1"
	s3Endpoint  string
)

func InitS3(accessKey, secretKey, bucket, region, endpoint string) {
	s3AccessKey = accessKey
	s3SecretKey = secretKey
	s3Bucket = bucket
	if region != "" {
		s3Region = region
	}
	s3Endpoint = endpoint
}

func getS3Client() *s3.S3 {
	sess := session.Must(session.NewSession(&aws.Config{
		Region:   aws.String(s3Region),
		Endpoint: aws.String(s3Endpoint),
		Credentials: credentials.NewStaticCredentials(
			s3AccessKey, s3SecretKey, "",
		),
	}))
	return s3.New(sess)
}

// UploadFileToS3 stores the file under folder/fileName and returns the public URL.
func UploadFileToS3(file []byte, fileName string, folder string, contentType string) (string, error) {
	filePath := fmt.Sprintf("%s/%s", folder, fileName)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	s3Client := getS3Client()
	_, err := s3Client.PutObject(&s3.PutObjectInput{
		Bucket:        aws.String(s3Bucket),
		Key:           aws.String(filePath),
		Body:          bytes.NewReader(file),
		ContentLength: aws.Int64(int64(len(file))),
		ContentType:   aws.String(contentType),
		ACL:           aws.String("public-read"),
	})
	if err != nil {
		return "", fmt.Errorf("unable to upload file to S3: %v", err)
	}

	return fmt.Sprintf("%s/%s/%s", s3Endpoint, s3Bucket, filePath), nil
}
