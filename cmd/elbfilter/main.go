// Command elbfilter filters Application Load Balancer access logs and
// forwards matching records to CloudWatch or stdout.
package main

func main() {
	Execute()
}
